// ABOUTME: HTTP JSON API for the bazaar marketplace operations
// ABOUTME: Routes requests to the market service and maps domain errors to status codes

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lumenarts/bazaar-gateway/internal/auth"
	"github.com/lumenarts/bazaar-gateway/internal/market"
	"github.com/lumenarts/bazaar-gateway/internal/store"
)

// Server exposes the market service over HTTP
type Server struct {
	market   *market.Service
	store    *store.SQLiteStore
	verifier auth.TokenVerifier
	logger   *slog.Logger
}

// NewServer creates an API server over the market service
func NewServer(m *market.Service, s *store.SQLiteStore, verifier auth.TokenVerifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		market:   m,
		store:    s,
		verifier: verifier,
		logger:   logger.With("component", "api"),
	}
}

// RegisterRoutes attaches all API routes to the mux. Authenticated routes
// are wrapped with the JWT middleware; admin identity management
// additionally requires the admin role.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	authn := auth.HTTPAuthMiddleware(s.store, s.store, s.verifier)
	admin := auth.RequireAdminHTTP()

	// Public
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/register", s.handleRegister)

	// Authenticated market operations
	mux.Handle("GET /v1/me", authn(http.HandlerFunc(s.handleMe)))
	mux.Handle("GET /v1/me/assets", authn(http.HandlerFunc(s.handleMyAssets)))
	mux.Handle("POST /v1/roles/grant", authn(http.HandlerFunc(s.handleGrantRole)))
	mux.Handle("POST /v1/roles/revoke", authn(http.HandlerFunc(s.handleRevokeRole)))
	mux.Handle("POST /v1/assets", authn(http.HandlerFunc(s.handleCreateAndList)))
	mux.Handle("GET /v1/assets/{id}", authn(http.HandlerFunc(s.handleGetAsset)))
	mux.Handle("POST /v1/assets/{id}/price", authn(http.HandlerFunc(s.handleSetPrice)))
	mux.Handle("POST /v1/assets/{id}/list", authn(http.HandlerFunc(s.handleList)))
	mux.Handle("POST /v1/assets/{id}/delist", authn(http.HandlerFunc(s.handleDelist)))
	mux.Handle("POST /v1/assets/{id}/buy", authn(http.HandlerFunc(s.handleBuy)))
	mux.Handle("GET /v1/listings", authn(http.HandlerFunc(s.handleListings)))
	mux.Handle("GET /v1/counter", authn(http.HandlerFunc(s.handleCounter)))
	mux.Handle("POST /v1/withdraw", authn(http.HandlerFunc(s.handleWithdraw)))
	mux.Handle("GET /v1/events", authn(http.HandlerFunc(s.handleEvents)))

	// Admin identity management
	mux.Handle("GET /v1/principals", authn(admin(http.HandlerFunc(s.handleListPrincipals))))
	mux.Handle("POST /v1/principals/{id}/approve", authn(admin(http.HandlerFunc(s.handleApprovePrincipal))))
	mux.Handle("POST /v1/principals/{id}/revoke", authn(admin(http.HandlerFunc(s.handleRevokePrincipal))))
	mux.Handle("POST /v1/tokens", authn(admin(http.HandlerFunc(s.handleCreateToken))))
}

// writeJSON writes a JSON response with the given status code
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

// errorResponse is the JSON body for failed requests
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps a domain error to an HTTP status and error code
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"

	switch {
	case errors.Is(err, market.ErrUnauthorized):
		status, code = http.StatusForbidden, "unauthorized"
	case errors.Is(err, market.ErrUnknownAsset):
		status, code = http.StatusNotFound, "unknown_asset"
	case errors.Is(err, market.ErrNotListed):
		status, code = http.StatusConflict, "not_listed"
	case errors.Is(err, market.ErrInsufficientPayment):
		status, code = http.StatusPaymentRequired, "insufficient_payment"
	case errors.Is(err, market.ErrExcessPayment):
		status, code = http.StatusPaymentRequired, "excess_payment"
	case errors.Is(err, market.ErrInvalidPrice):
		status, code = http.StatusBadRequest, "invalid_price"
	case errors.Is(err, market.ErrNothingToWithdraw):
		status, code = http.StatusConflict, "nothing_to_withdraw"
	case errors.Is(err, market.ErrSelfPurchase):
		status, code = http.StatusConflict, "self_purchase"
	case errors.Is(err, market.ErrNotOwnerOrSeller):
		status, code = http.StatusForbidden, "not_owner_or_seller"
	case errors.Is(err, market.ErrInvalidRole):
		status, code = http.StatusBadRequest, "invalid_role"
	case errors.Is(err, store.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, store.ErrDuplicatePrincipal):
		status, code = http.StatusConflict, "duplicate_principal"
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		s.writeJSON(w, status, errorResponse{Error: "internal error", Code: code})
		return
	}

	s.writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

// decodeBody parses a JSON request body into v
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// parseLimit parses a positive query-string limit
func parseLimit(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

// pathAssetID parses the {id} path segment as an asset identifier
func pathAssetID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
