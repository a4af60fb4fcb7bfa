// ABOUTME: Tests for auth context propagation helpers
// ABOUTME: Covers WithAuth/FromContext round-trips and role checks

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithAuth_FromContext(t *testing.T) {
	authCtx := &AuthContext{
		PrincipalID: "principal-123",
		Roles:       []string{"creator", "seller"},
	}

	ctx := WithAuth(context.Background(), authCtx)
	got := FromContext(ctx)

	require.NotNil(t, got)
	assert.Equal(t, "principal-123", got.PrincipalID)
	assert.Equal(t, []string{"creator", "seller"}, got.Roles)
}

func TestFromContext_Missing(t *testing.T) {
	got := FromContext(context.Background())
	assert.Nil(t, got)
}

func TestMustFromContext_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustFromContext(context.Background())
	})
}

func TestAuthContext_HasRole(t *testing.T) {
	authCtx := &AuthContext{
		PrincipalID: "principal-123",
		Roles:       []string{"buyer"},
	}

	assert.True(t, authCtx.HasRole("buyer"))
	assert.False(t, authCtx.HasRole("admin"))
	assert.False(t, authCtx.IsAdmin())
}

func TestAuthContext_IsAdmin(t *testing.T) {
	authCtx := &AuthContext{
		PrincipalID: "principal-123",
		Roles:       []string{"admin", "buyer"},
	}

	assert.True(t, authCtx.IsAdmin())
}
