// ABOUTME: Ledger balance store methods for accrued, unwithdrawn proceeds
// ABOUTME: Balances are credited only by settlement and zeroed only by withdrawal

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GetBalance returns the accrued balance for a principal. Principals with
// no balance row have a balance of zero.
func (s *SQLiteStore) GetBalance(ctx context.Context, principalID string) (int64, error) {
	var amount int64
	err := s.db.QueryRowContext(ctx,
		`SELECT amount FROM balances WHERE principal_id = ?`, principalID).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting balance: %w", err)
	}
	return amount, nil
}

// SumBalances returns the total of all unwithdrawn balances
func (s *SQLiteStore) SumBalances(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT SUM(amount) FROM balances`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing balances: %w", err)
	}
	return total.Int64, nil
}

// GetTreasuryTotals returns lifetime received and withdrawn amounts
func (s *SQLiteStore) GetTreasuryTotals(ctx context.Context) (*TreasuryTotals, error) {
	totals := &TreasuryTotals{}

	err := s.db.QueryRowContext(ctx,
		`SELECT amount FROM treasury WHERE name = 'total_received'`).Scan(&totals.Received)
	if err != nil {
		return nil, fmt.Errorf("reading total received: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT amount FROM treasury WHERE name = 'total_withdrawn'`).Scan(&totals.Withdrawn)
	if err != nil {
		return nil, fmt.Errorf("reading total withdrawn: %w", err)
	}

	return totals, nil
}

// ListPayouts returns completed withdrawals for a principal, newest first
func (s *SQLiteStore) ListPayouts(ctx context.Context, principalID string) ([]Payout, error) {
	query := `
		SELECT payout_id, principal_id, amount, created_at
		FROM payouts WHERE principal_id = ?
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, principalID)
	if err != nil {
		return nil, fmt.Errorf("listing payouts: %w", err)
	}
	defer rows.Close()

	var payouts []Payout
	for rows.Next() {
		var p Payout
		var createdAt string
		if err := rows.Scan(&p.ID, &p.PrincipalID, &p.Amount, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning payout: %w", err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		payouts = append(payouts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payouts: %w", err)
	}

	return payouts, nil
}
