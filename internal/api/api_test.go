// ABOUTME: End-to-end HTTP API tests over a real store and market service
// ABOUTME: Drives the full register, approve, mint, buy, withdraw flow via httptest

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenarts/bazaar-gateway/internal/auth"
	"github.com/lumenarts/bazaar-gateway/internal/market"
	"github.com/lumenarts/bazaar-gateway/internal/store"
)

type testAPI struct {
	server   *httptest.Server
	store    *store.SQLiteStore
	verifier *auth.JWTVerifier
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)

	verifier, err := auth.NewJWTVerifier([]byte("test-secret-at-least-32-bytes-long!!"))
	require.NoError(t, err)

	svc := market.NewService(st, market.OverpaymentRefund, nil)
	apiServer := NewServer(svc, st, verifier, nil)

	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		srv.Close()
		st.Close()
	})

	return &testAPI{server: srv, store: st, verifier: verifier}
}

// newPrincipal creates an approved principal with the given roles and
// returns a live token for it.
func (a *testAPI) newPrincipal(t *testing.T, id string, roles ...store.RoleName) string {
	t.Helper()
	ctx := context.Background()

	err := a.store.CreatePrincipal(ctx, &store.Principal{
		ID:          id,
		DisplayName: id,
		Status:      store.PrincipalStatusApproved,
		CreatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)

	for _, role := range roles {
		require.NoError(t, a.store.AddRole(ctx, id, role))
	}

	token, err := a.verifier.Generate(id, time.Hour)
	require.NoError(t, err)
	return token
}

// do performs a request against the test server and decodes the JSON
// response body into out when non-nil.
func (a *testAPI) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reqBody)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if out != nil && len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, out), "body: %s", data)
	}
	return resp.StatusCode
}

func TestAPI_Health(t *testing.T) {
	a := setupAPI(t)

	var resp map[string]string
	status := a.do(t, http.MethodGet, "/healthz", "", nil, &resp)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", resp["status"])
}

func TestAPI_RequiresAuth(t *testing.T) {
	a := setupAPI(t)

	status := a.do(t, http.MethodGet, "/v1/listings", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_RegisterAndApprove(t *testing.T) {
	a := setupAPI(t)
	adminToken := a.newPrincipal(t, "admin-1", store.RoleAdmin)

	// Open registration
	var reg RegisterResponse
	status := a.do(t, http.MethodPost, "/v1/register", "", RegisterRequest{DisplayName: "Alice"}, &reg)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "pending", reg.Status)

	// A pending principal's token is rejected
	pendingToken, err := a.verifier.Generate(reg.PrincipalID, time.Hour)
	require.NoError(t, err)
	status = a.do(t, http.MethodGet, "/v1/me", pendingToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// Admin approves
	status = a.do(t, http.MethodPost, "/v1/principals/"+reg.PrincipalID+"/approve", adminToken, struct{}{}, nil)
	require.Equal(t, http.StatusOK, status)

	// The same token now works
	var me MeResponse
	status = a.do(t, http.MethodGet, "/v1/me", pendingToken, nil, &me)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, reg.PrincipalID, me.PrincipalID)
}

func TestAPI_AdminEndpointsForbiddenForNonAdmin(t *testing.T) {
	a := setupAPI(t)
	token := a.newPrincipal(t, "user-1", store.RoleBuyer)

	status := a.do(t, http.MethodGet, "/v1/principals", token, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status = a.do(t, http.MethodPost, "/v1/tokens", token, CreateTokenRequest{PrincipalID: "user-1"}, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAPI_CreateToken(t *testing.T) {
	a := setupAPI(t)
	adminToken := a.newPrincipal(t, "admin-1", store.RoleAdmin)
	a.newPrincipal(t, "alice")

	var resp CreateTokenResponse
	status := a.do(t, http.MethodPost, "/v1/tokens", adminToken, CreateTokenRequest{PrincipalID: "alice"}, &resp)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, resp.Token)

	// The issued token authenticates
	var me MeResponse
	status = a.do(t, http.MethodGet, "/v1/me", resp.Token, nil, &me)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", me.PrincipalID)
}

func TestAPI_MarketFlow(t *testing.T) {
	a := setupAPI(t)
	adminToken := a.newPrincipal(t, "admin-1", store.RoleAdmin)
	aliceToken := a.newPrincipal(t, "alice")
	bobToken := a.newPrincipal(t, "bob")

	// Admin hands out capabilities over the API
	status := a.do(t, http.MethodPost, "/v1/roles/grant", adminToken,
		GrantRoleRequest{PrincipalID: "alice", Role: "creator"}, nil)
	require.Equal(t, http.StatusOK, status)
	status = a.do(t, http.MethodPost, "/v1/roles/grant", adminToken,
		GrantRoleRequest{PrincipalID: "bob", Role: "buyer"}, nil)
	require.Equal(t, http.StatusOK, status)

	// Alice mints and lists
	var created CreateAssetResponse
	status = a.do(t, http.MethodPost, "/v1/assets", aliceToken,
		CreateAssetRequest{TokenURI: "ipfs://meta/1", Price: 100}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(1), created.AssetID)

	// The listing is visible
	var listings struct {
		Listings []ListedAssetResponse `json:"listings"`
	}
	status = a.do(t, http.MethodGet, "/v1/listings", bobToken, nil, &listings)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, listings.Listings, 1)
	assert.Equal(t, int64(100), listings.Listings[0].Price)

	// Underpayment is rejected with 402 and no state change
	status = a.do(t, http.MethodPost, fmt.Sprintf("/v1/assets/%d/buy", created.AssetID), bobToken,
		BuyRequest{Payment: 50}, nil)
	assert.Equal(t, http.StatusPaymentRequired, status)

	var asset AssetResponse
	status = a.do(t, http.MethodGet, fmt.Sprintf("/v1/assets/%d", created.AssetID), bobToken, nil, &asset)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", asset.Owner)
	assert.True(t, asset.Listed)

	// Overpayment settles with a refund
	var sale SaleResponse
	status = a.do(t, http.MethodPost, fmt.Sprintf("/v1/assets/%d/buy", created.AssetID), bobToken,
		BuyRequest{Payment: 120}, &sale)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bob", sale.Buyer)
	assert.Equal(t, int64(100), sale.Price)
	assert.Equal(t, int64(20), sale.Refund)

	// Bob now owns it
	status = a.do(t, http.MethodGet, fmt.Sprintf("/v1/assets/%d", created.AssetID), bobToken, nil, &asset)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bob", asset.Owner)
	assert.False(t, asset.Listed)

	var bobAssets struct {
		Assets []AssetResponse `json:"assets"`
	}
	status = a.do(t, http.MethodGet, "/v1/me/assets", bobToken, nil, &bobAssets)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, bobAssets.Assets, 1)

	// Alice withdraws her proceeds
	var payout PayoutResponse
	status = a.do(t, http.MethodPost, "/v1/withdraw", aliceToken, nil, &payout)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(100), payout.Amount)

	// Second withdrawal has nothing left
	status = a.do(t, http.MethodPost, "/v1/withdraw", aliceToken, nil, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestAPI_BuyErrors(t *testing.T) {
	a := setupAPI(t)
	aliceToken := a.newPrincipal(t, "alice", store.RoleCreator, store.RoleBuyer)
	bobToken := a.newPrincipal(t, "bob", store.RoleBuyer)

	var created CreateAssetResponse
	status := a.do(t, http.MethodPost, "/v1/assets", aliceToken,
		CreateAssetRequest{TokenURI: "ipfs://x", Price: 100}, &created)
	require.Equal(t, http.StatusCreated, status)

	// Unknown asset
	status = a.do(t, http.MethodPost, "/v1/assets/999/buy", bobToken, BuyRequest{Payment: 100}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// Self purchase
	var resp errorResponse
	status = a.do(t, http.MethodPost, fmt.Sprintf("/v1/assets/%d/buy", created.AssetID), aliceToken,
		BuyRequest{Payment: 100}, &resp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "self_purchase", resp.Code)

	// Delisted asset
	status = a.do(t, http.MethodPost, fmt.Sprintf("/v1/assets/%d/delist", created.AssetID), aliceToken, nil, nil)
	require.Equal(t, http.StatusOK, status)
	status = a.do(t, http.MethodPost, fmt.Sprintf("/v1/assets/%d/buy", created.AssetID), bobToken,
		BuyRequest{Payment: 100}, &resp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "not_listed", resp.Code)
}

func TestAPI_RoleGrantRequiresAdmin(t *testing.T) {
	a := setupAPI(t)
	token := a.newPrincipal(t, "user-1", store.RoleBuyer)

	status := a.do(t, http.MethodPost, "/v1/roles/grant", token,
		GrantRoleRequest{PrincipalID: "user-1", Role: "admin"}, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAPI_Counter(t *testing.T) {
	a := setupAPI(t)
	token := a.newPrincipal(t, "alice", store.RoleCreator)

	var counter map[string]int64
	status := a.do(t, http.MethodGet, "/v1/counter", token, nil, &counter)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(0), counter["counter"])

	a.do(t, http.MethodPost, "/v1/assets", token, CreateAssetRequest{TokenURI: "ipfs://x", Price: 1}, nil)

	status = a.do(t, http.MethodGet, "/v1/counter", token, nil, &counter)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), counter["counter"])
}

func TestAPI_Events(t *testing.T) {
	a := setupAPI(t)
	adminToken := a.newPrincipal(t, "admin-1", store.RoleAdmin, store.RoleCreator)
	userToken := a.newPrincipal(t, "user-1", store.RoleBuyer)

	a.do(t, http.MethodPost, "/v1/assets", adminToken, CreateAssetRequest{TokenURI: "ipfs://x", Price: 1}, nil)

	// Admin sees the audit trail
	var events struct {
		Events []store.MarketEvent `json:"events"`
	}
	status := a.do(t, http.MethodGet, "/v1/events", adminToken, nil, &events)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, events.Events)

	// Non-admin does not
	status = a.do(t, http.MethodGet, "/v1/events", userToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)
}
