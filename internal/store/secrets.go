// ABOUTME: Secrets store for operator credentials kept at rest as bcrypt hashes
// ABOUTME: Used by bootstrap to persist the recovery token for the first admin

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// SetSecret stores a named secret as a bcrypt hash. Existing secrets are
// replaced; the plaintext is never persisted.
func (s *SQLiteStore) SetSecret(ctx context.Context, name, plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing secret: %w", err)
	}

	query := `
		INSERT INTO secrets (name, secret_hash, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET secret_hash = excluded.secret_hash, created_at = excluded.created_at
	`

	_, err = s.db.ExecContext(ctx, query, name, string(hash), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storing secret: %w", err)
	}

	s.logger.Debug("stored secret", "name", name)
	return nil
}

// VerifySecret checks plaintext against the stored hash for name.
// Returns false (not an error) for unknown names and mismatches.
func (s *SQLiteStore) VerifySecret(ctx context.Context, name, plaintext string) (bool, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT secret_hash FROM secrets WHERE name = ?`, name).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading secret: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)); err != nil {
		return false, nil
	}
	return true, nil
}
