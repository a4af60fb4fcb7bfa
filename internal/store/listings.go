// ABOUTME: Listing store methods implementing the per-asset sale state machine
// ABOUTME: Single-statement updates; multi-table transitions live in settlement.go

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetListing retrieves the listing row for an asset. Every minted asset has
// one; ErrNotFound means the asset was never minted.
func (s *SQLiteStore) GetListing(ctx context.Context, assetID int64) (*Listing, error) {
	query := `
		SELECT asset_id, price, seller, listed, updated_at
		FROM listings WHERE asset_id = ?
	`

	var l Listing
	var listed int
	var updatedAt string
	err := s.db.QueryRowContext(ctx, query, assetID).Scan(&l.AssetID, &l.Price, &l.Seller, &listed, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting listing: %w", err)
	}

	l.Listed = listed != 0
	l.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &l, nil
}

// SetListingPrice updates the asking price on an existing listing.
// Returns ErrNotFound if the asset was never minted.
func (s *SQLiteStore) SetListingPrice(ctx context.Context, assetID int64, price int64) error {
	query := `UPDATE listings SET price = ?, updated_at = ? WHERE asset_id = ?`

	result, err := s.db.ExecContext(ctx, query, price, time.Now().UTC().Format(time.RFC3339), assetID)
	if err != nil {
		return fmt.Errorf("setting listing price: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.Debug("listing price updated", "asset_id", assetID, "price", price)
	return nil
}

// SetListed flips an asset's listing on or off. When listing, the seller
// is set to the given principal. Returns ErrNotFound for unminted assets.
func (s *SQLiteStore) SetListed(ctx context.Context, assetID int64, seller string, price int64, listed bool) error {
	listedInt := 0
	if listed {
		listedInt = 1
	}

	query := `
		UPDATE listings SET listed = ?, seller = ?, price = ?, updated_at = ?
		WHERE asset_id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		listedInt, seller, price, time.Now().UTC().Format(time.RFC3339), assetID)
	if err != nil {
		return fmt.Errorf("updating listing state: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.Debug("listing state updated", "asset_id", assetID, "listed", listed, "price", price)
	return nil
}

// ListActiveListings returns all currently listed assets joined with their
// asset records, ordered by asset ID.
func (s *SQLiteStore) ListActiveListings(ctx context.Context) ([]ListedAsset, error) {
	query := `
		SELECT l.asset_id, a.owner, a.token_uri, l.price, l.seller
		FROM listings l
		JOIN assets a ON a.asset_id = l.asset_id
		WHERE l.listed = 1
		ORDER BY l.asset_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing active listings: %w", err)
	}
	defer rows.Close()

	var listings []ListedAsset
	for rows.Next() {
		var la ListedAsset
		if err := rows.Scan(&la.AssetID, &la.Owner, &la.TokenURI, &la.Price, &la.Seller); err != nil {
			return nil, fmt.Errorf("scanning listed asset: %w", err)
		}
		listings = append(listings, la)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating listed assets: %w", err)
	}

	return listings, nil
}
