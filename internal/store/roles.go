// ABOUTME: Role entity and store methods for marketplace authorization
// ABOUTME: Roles grant capabilities (admin, creator, seller, buyer) to principals

package store

import (
	"context"
	"fmt"
	"time"
)

// RoleName represents a capability that can be assigned to a principal
type RoleName string

const (
	RoleAdmin   RoleName = "admin"
	RoleCreator RoleName = "creator"
	RoleSeller  RoleName = "seller"
	RoleBuyer   RoleName = "buyer"
)

// ValidRoleNames lists all valid role names
var ValidRoleNames = []RoleName{
	RoleAdmin,
	RoleCreator,
	RoleSeller,
	RoleBuyer,
}

// IsValidRole reports whether name is a recognized role
func IsValidRole(name RoleName) bool {
	for _, r := range ValidRoleNames {
		if r == name {
			return true
		}
	}
	return false
}

// Role represents a role assignment to a principal
type Role struct {
	PrincipalID string
	Role        RoleName
	CreatedAt   time.Time
}

// AddRole grants a role to a principal. This operation is idempotent -
// granting an already-held role succeeds silently.
func (s *SQLiteStore) AddRole(ctx context.Context, principalID string, role RoleName) error {
	query := `
		INSERT OR IGNORE INTO roles (principal_id, role, created_at)
		VALUES (?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		principalID,
		role,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("adding role: %w", err)
	}

	s.logger.Debug("added role", "principal_id", principalID, "role", role)
	return nil
}

// RemoveRole revokes a role from a principal. This operation is idempotent -
// removing a non-held role succeeds silently.
func (s *SQLiteStore) RemoveRole(ctx context.Context, principalID string, role RoleName) error {
	query := `DELETE FROM roles WHERE principal_id = ? AND role = ?`

	_, err := s.db.ExecContext(ctx, query, principalID, role)
	if err != nil {
		return fmt.Errorf("removing role: %w", err)
	}

	s.logger.Debug("removed role", "principal_id", principalID, "role", role)
	return nil
}

// HasRole checks if a principal holds a specific role. Returns false for
// unknown principals (not an error).
func (s *SQLiteStore) HasRole(ctx context.Context, principalID string, role RoleName) (bool, error) {
	query := `
		SELECT COUNT(*) FROM roles
		WHERE principal_id = ? AND role = ?
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, principalID, role).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking role: %w", err)
	}

	return count > 0, nil
}

// ListRoles returns all roles held by a principal. Returns an empty slice
// if the principal holds none.
func (s *SQLiteStore) ListRoles(ctx context.Context, principalID string) ([]RoleName, error) {
	query := `
		SELECT role FROM roles
		WHERE principal_id = ?
		ORDER BY role
	`

	rows, err := s.db.QueryContext(ctx, query, principalID)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	var roles []RoleName
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		roles = append(roles, RoleName(role))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roles: %w", err)
	}

	// Return empty slice (not nil) if no roles
	if roles == nil {
		roles = []RoleName{}
	}

	return roles, nil
}
