// ABOUTME: Principal entity and store methods for market participant identities
// ABOUTME: Principals register as pending and are approved or revoked by admins

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PrincipalStatus represents the lifecycle state of a principal
type PrincipalStatus string

const (
	PrincipalStatusPending  PrincipalStatus = "pending"
	PrincipalStatusApproved PrincipalStatus = "approved"
	PrincipalStatusRevoked  PrincipalStatus = "revoked"
)

// Principal represents a market participant identity. The ID is opaque;
// the market compares principals by equality only.
type Principal struct {
	ID          string
	DisplayName string
	Status      PrincipalStatus
	CreatedAt   time.Time
	LastSeen    *time.Time
}

// PrincipalFilter specifies filtering options for listing principals
type PrincipalFilter struct {
	Status *PrincipalStatus
}

// CreatePrincipal inserts a new principal record
func (s *SQLiteStore) CreatePrincipal(ctx context.Context, p *Principal) error {
	query := `
		INSERT INTO principals (principal_id, display_name, status, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.DisplayName,
		p.Status,
		p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicatePrincipal
		}
		return fmt.Errorf("creating principal: %w", err)
	}

	s.logger.Debug("created principal", "principal_id", p.ID, "status", p.Status)
	return nil
}

// GetPrincipal retrieves a principal by ID. Returns ErrNotFound if it
// does not exist.
func (s *SQLiteStore) GetPrincipal(ctx context.Context, id string) (*Principal, error) {
	query := `
		SELECT principal_id, display_name, status, created_at, last_seen
		FROM principals WHERE principal_id = ?
	`

	row := s.db.QueryRowContext(ctx, query, id)
	return scanPrincipal(row)
}

// ListPrincipals returns principals matching the filter, oldest first
func (s *SQLiteStore) ListPrincipals(ctx context.Context, filter PrincipalFilter) ([]Principal, error) {
	query := `
		SELECT principal_id, display_name, status, created_at, last_seen
		FROM principals
	`
	var args []any
	if filter.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, *filter.Status)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing principals: %w", err)
	}
	defer rows.Close()

	var principals []Principal
	for rows.Next() {
		var p Principal
		var createdAt string
		var lastSeen sql.NullString
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.Status, &createdAt, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning principal: %w", err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if lastSeen.Valid {
			t, _ := time.Parse(time.RFC3339, lastSeen.String)
			p.LastSeen = &t
		}
		principals = append(principals, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating principals: %w", err)
	}

	return principals, nil
}

// UpdatePrincipalStatus transitions a principal to a new lifecycle state.
// Returns ErrNotFound if the principal does not exist.
func (s *SQLiteStore) UpdatePrincipalStatus(ctx context.Context, id string, status PrincipalStatus) error {
	query := `UPDATE principals SET status = ? WHERE principal_id = ?`

	result, err := s.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("updating principal status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated principal status", "principal_id", id, "status", status)
	return nil
}

// TouchPrincipal records activity for a principal
func (s *SQLiteStore) TouchPrincipal(ctx context.Context, id string) error {
	query := `UPDATE principals SET last_seen = ? WHERE principal_id = ?`

	_, err := s.db.ExecContext(ctx, query, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("touching principal: %w", err)
	}
	return nil
}

func scanPrincipal(row *sql.Row) (*Principal, error) {
	var p Principal
	var createdAt string
	var lastSeen sql.NullString

	err := row.Scan(&p.ID, &p.DisplayName, &p.Status, &createdAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning principal: %w", err)
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if lastSeen.Valid {
		t, _ := time.Parse(time.RFC3339, lastSeen.String)
		p.LastSeen = &t
	}

	return &p, nil
}
