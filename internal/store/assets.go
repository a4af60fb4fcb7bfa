// ABOUTME: Asset store methods for reading minted tokens
// ABOUTME: Asset creation happens only inside the mint transaction in settlement.go

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetAsset retrieves an asset by ID. Returns ErrNotFound for identifiers
// that were never issued.
func (s *SQLiteStore) GetAsset(ctx context.Context, assetID int64) (*Asset, error) {
	query := `
		SELECT asset_id, owner, token_uri, created_at
		FROM assets WHERE asset_id = ?
	`

	var a Asset
	var createdAt string
	err := s.db.QueryRowContext(ctx, query, assetID).Scan(&a.ID, &a.Owner, &a.TokenURI, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting asset: %w", err)
	}

	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

// ListAssetsByOwner returns all assets held by a principal, oldest mint first
func (s *SQLiteStore) ListAssetsByOwner(ctx context.Context, owner string) ([]Asset, error) {
	query := `
		SELECT asset_id, owner, token_uri, created_at
		FROM assets WHERE owner = ?
		ORDER BY asset_id
	`

	rows, err := s.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("listing assets by owner: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var a Asset
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Owner, &a.TokenURI, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		assets = append(assets, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assets: %w", err)
	}

	return assets, nil
}

// TokenIDCounter returns the identifier of the most recently minted asset,
// or 0 if nothing has been minted yet.
func (s *SQLiteStore) TokenIDCounter(ctx context.Context) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM counters WHERE name = 'token_id'`).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("reading token counter: %w", err)
	}
	return value, nil
}
