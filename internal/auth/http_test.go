// ABOUTME: Tests for the HTTP authentication middleware
// ABOUTME: Uses stub principal and role stores with httptest

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenarts/bazaar-gateway/internal/store"
)

type stubPrincipalStore struct {
	principals map[string]*store.Principal
}

func (s *stubPrincipalStore) GetPrincipal(_ context.Context, id string) (*store.Principal, error) {
	p, ok := s.principals[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

type stubRoleStore struct {
	roles map[string][]store.RoleName
}

func (s *stubRoleStore) ListRoles(_ context.Context, principalID string) ([]store.RoleName, error) {
	return s.roles[principalID], nil
}

func setupMiddleware(t *testing.T) (*JWTVerifier, http.Handler) {
	t.Helper()

	verifier, err := NewJWTVerifier(testSecret)
	require.NoError(t, err)

	principals := &stubPrincipalStore{principals: map[string]*store.Principal{
		"approved-1": {ID: "approved-1", Status: store.PrincipalStatusApproved},
		"pending-1":  {ID: "pending-1", Status: store.PrincipalStatusPending},
		"revoked-1":  {ID: "revoked-1", Status: store.PrincipalStatusRevoked},
	}}
	roles := &stubRoleStore{roles: map[string][]store.RoleName{
		"approved-1": {store.RoleAdmin, store.RoleBuyer},
	}}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return verifier, HTTPAuthMiddleware(principals, roles, verifier)(inner)
}

func doRequest(handler http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHTTPAuthMiddleware_Success(t *testing.T) {
	verifier, err := NewJWTVerifier(testSecret)
	require.NoError(t, err)

	principals := &stubPrincipalStore{principals: map[string]*store.Principal{
		"approved-1": {ID: "approved-1", Status: store.PrincipalStatusApproved},
	}}
	roles := &stubRoleStore{roles: map[string][]store.RoleName{
		"approved-1": {store.RoleBuyer},
	}}

	var captured *AuthContext
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := HTTPAuthMiddleware(principals, roles, verifier)(inner)

	token, err := verifier.Generate("approved-1", time.Hour)
	require.NoError(t, err)

	rec := doRequest(handler, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, captured)
	assert.Equal(t, "approved-1", captured.PrincipalID)
	assert.Equal(t, []string{"buyer"}, captured.Roles)
}

func TestHTTPAuthMiddleware_MissingHeader(t *testing.T) {
	_, handler := setupMiddleware(t)

	rec := doRequest(handler, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPAuthMiddleware_BadToken(t *testing.T) {
	_, handler := setupMiddleware(t)

	rec := doRequest(handler, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPAuthMiddleware_UnknownPrincipal(t *testing.T) {
	verifier, handler := setupMiddleware(t)

	token, err := verifier.Generate("ghost", time.Hour)
	require.NoError(t, err)

	rec := doRequest(handler, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPAuthMiddleware_PendingPrincipal(t *testing.T) {
	verifier, handler := setupMiddleware(t)

	token, err := verifier.Generate("pending-1", time.Hour)
	require.NoError(t, err)

	rec := doRequest(handler, "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHTTPAuthMiddleware_RevokedPrincipal(t *testing.T) {
	verifier, handler := setupMiddleware(t)

	token, err := verifier.Generate("revoked-1", time.Hour)
	require.NoError(t, err)

	rec := doRequest(handler, "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdminHTTP(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAdminHTTP()(inner)

	// Admin passes
	req := httptest.NewRequest(http.MethodGet, "/v1/principals", nil)
	req = req.WithContext(WithAuth(req.Context(), &AuthContext{
		PrincipalID: "admin-1",
		Roles:       []string{"admin"},
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Non-admin is forbidden
	req = httptest.NewRequest(http.MethodGet, "/v1/principals", nil)
	req = req.WithContext(WithAuth(req.Context(), &AuthContext{
		PrincipalID: "user-1",
		Roles:       []string{"buyer"},
	}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// No auth context at all
	req = httptest.NewRequest(http.MethodGet, "/v1/principals", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExtractBearerToken(t *testing.T) {
	token, errMsg := extractBearerToken("Bearer abc123")
	assert.Equal(t, "abc123", token)
	assert.Empty(t, errMsg)

	_, errMsg = extractBearerToken("")
	assert.NotEmpty(t, errMsg)

	_, errMsg = extractBearerToken("Basic abc123")
	assert.NotEmpty(t, errMsg)

	_, errMsg = extractBearerToken("Bearer ")
	assert.NotEmpty(t, errMsg)
}
