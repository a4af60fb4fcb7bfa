// ABOUTME: Atomic multi-table transactions for minting, sale settlement, and withdrawal
// ABOUTME: Each operation commits fully or rolls back with no partial effects

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyBalance is returned by ExecuteWithdrawal when there is nothing to pay out
var ErrEmptyBalance = errors.New("empty balance")

// ErrStateConflict is returned when a guarded update finds the row in an
// unexpected state. The caller's preconditions were violated mid-flight;
// the transaction is rolled back.
var ErrStateConflict = errors.New("state conflict")

// MintListed allocates the next asset identifier, creates the asset owned
// by the creator, and opens its listing, all in one transaction. Returns
// the newly issued asset ID; the first ID ever issued is 1.
func (s *SQLiteStore) MintListed(ctx context.Context, creator, tokenURI string, price int64) (int64, error) {
	var assetID int64
	now := time.Now().UTC().Format(time.RFC3339)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE counters SET value = value + 1 WHERE name = 'token_id'`); err != nil {
			return fmt.Errorf("advancing token counter: %w", err)
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT value FROM counters WHERE name = 'token_id'`).Scan(&assetID); err != nil {
			return fmt.Errorf("reading token counter: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO assets (asset_id, owner, token_uri, created_at) VALUES (?, ?, ?, ?)`,
			assetID, creator, tokenURI, now); err != nil {
			return fmt.Errorf("inserting asset: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO listings (asset_id, price, seller, listed, updated_at) VALUES (?, ?, ?, 1, ?)`,
			assetID, price, creator, now); err != nil {
			return fmt.Errorf("inserting listing: %w", err)
		}

		return s.insertEvent(ctx, tx, &MarketEvent{
			Type:    EventTypeMint,
			Actor:   creator,
			AssetID: &assetID,
			Amount:  &price,
			Detail:  map[string]any{"token_uri": tokenURI},
		})
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("asset minted", "asset_id", assetID, "creator", creator, "price", price)
	return assetID, nil
}

// SaleParams carries the validated inputs for settling a purchase.
// Owner and Price are the values observed by the caller's precondition
// checks; the transaction re-guards on them and aborts on divergence.
type SaleParams struct {
	AssetID int64
	Buyer   string
	Owner   string // current owner, becomes the credited party's counterpart
	Seller  string // listing's seller, credited with the price
	Price   int64
	Refund  int64 // excess payment returned to the buyer
}

// ExecuteSale transfers ownership, closes the listing, and credits the
// seller's balance as one indivisible unit. All bookkeeping commits before
// any value leaves the system, so a failure at any step leaves ownership,
// listing, and balances untouched.
func (s *SQLiteStore) ExecuteSale(ctx context.Context, p SaleParams) (*SaleResult, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE assets SET owner = ? WHERE asset_id = ? AND owner = ?`,
			p.Buyer, p.AssetID, p.Owner)
		if err != nil {
			return fmt.Errorf("transferring ownership: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("asset %d owner changed: %w", p.AssetID, ErrStateConflict)
		}

		result, err = tx.ExecContext(ctx,
			`UPDATE listings SET listed = 0, updated_at = ? WHERE asset_id = ? AND listed = 1`,
			now, p.AssetID)
		if err != nil {
			return fmt.Errorf("closing listing: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("listing %d already closed: %w", p.AssetID, ErrStateConflict)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO balances (principal_id, amount, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(principal_id) DO UPDATE SET amount = amount + excluded.amount, updated_at = excluded.updated_at`,
			p.Seller, p.Price, now); err != nil {
			return fmt.Errorf("crediting seller: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE treasury SET amount = amount + ? WHERE name = 'total_received'`,
			p.Price); err != nil {
			return fmt.Errorf("updating treasury: %w", err)
		}

		return s.insertEvent(ctx, tx, &MarketEvent{
			Type:         EventTypeSale,
			Actor:        p.Buyer,
			AssetID:      &p.AssetID,
			Amount:       &p.Price,
			Counterparty: &p.Seller,
			Detail:       map[string]any{"refund": p.Refund},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sale settled",
		"asset_id", p.AssetID, "buyer", p.Buyer, "seller", p.Seller, "price", p.Price)

	return &SaleResult{
		AssetID: p.AssetID,
		Buyer:   p.Buyer,
		Seller:  p.Seller,
		Price:   p.Price,
		Refund:  p.Refund,
	}, nil
}

// ExecuteWithdrawal pays out the full accrued balance for a principal.
// The balance is zeroed before the payout record (the external transfer
// point) is written, so a repeated call cannot pay twice. Returns
// ErrEmptyBalance when there is nothing to withdraw.
func (s *SQLiteStore) ExecuteWithdrawal(ctx context.Context, principalID string) (*Payout, error) {
	payout := &Payout{
		ID:          uuid.NewString(),
		PrincipalID: principalID,
		CreatedAt:   time.Now().UTC(),
	}
	now := payout.CreatedAt.Format(time.RFC3339)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var amount int64
		err := tx.QueryRowContext(ctx,
			`SELECT amount FROM balances WHERE principal_id = ?`, principalID).Scan(&amount)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && amount == 0) {
			return ErrEmptyBalance
		}
		if err != nil {
			return fmt.Errorf("reading balance: %w", err)
		}
		payout.Amount = amount

		// Zero first, record the transfer after.
		if _, err := tx.ExecContext(ctx,
			`UPDATE balances SET amount = 0, updated_at = ? WHERE principal_id = ?`,
			now, principalID); err != nil {
			return fmt.Errorf("zeroing balance: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO payouts (payout_id, principal_id, amount, created_at) VALUES (?, ?, ?, ?)`,
			payout.ID, principalID, amount, now); err != nil {
			return fmt.Errorf("recording payout: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE treasury SET amount = amount + ? WHERE name = 'total_withdrawn'`,
			amount); err != nil {
			return fmt.Errorf("updating treasury: %w", err)
		}

		return s.insertEvent(ctx, tx, &MarketEvent{
			Type:   EventTypeWithdrawal,
			Actor:  principalID,
			Amount: &amount,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal paid out", "principal_id", principalID, "amount", payout.Amount)
	return payout, nil
}
