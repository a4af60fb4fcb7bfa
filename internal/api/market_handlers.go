// ABOUTME: Handlers for asset lifecycle, settlement, and balance endpoints
// ABOUTME: Thin JSON translation over the market service; all checks live there

package api

import (
	"net/http"

	"github.com/lumenarts/bazaar-gateway/internal/auth"
	"github.com/lumenarts/bazaar-gateway/internal/store"
)

// GrantRoleRequest is the JSON request body for POST /v1/roles/grant and revoke.
type GrantRoleRequest struct {
	PrincipalID string `json:"principal_id"`
	Role        string `json:"role"`
}

// CreateAssetRequest is the JSON request body for POST /v1/assets.
type CreateAssetRequest struct {
	TokenURI string `json:"token_uri"`
	Price    int64  `json:"price"`
}

// CreateAssetResponse is the JSON response for POST /v1/assets.
type CreateAssetResponse struct {
	AssetID int64 `json:"asset_id"`
}

// PriceRequest is the JSON request body for price and list endpoints.
type PriceRequest struct {
	Price int64 `json:"price"`
}

// BuyRequest is the JSON request body for POST /v1/assets/{id}/buy.
type BuyRequest struct {
	Payment int64 `json:"payment"`
}

// SaleResponse is the JSON response for a settled purchase.
type SaleResponse struct {
	AssetID int64  `json:"asset_id"`
	Buyer   string `json:"buyer"`
	Seller  string `json:"seller"`
	Price   int64  `json:"price"`
	Refund  int64  `json:"refund"`
}

// AssetResponse is the JSON response for asset reads.
type AssetResponse struct {
	AssetID  int64  `json:"asset_id"`
	Owner    string `json:"owner"`
	TokenURI string `json:"token_uri"`
	Listed   bool   `json:"listed"`
	Price    int64  `json:"price"`
	Seller   string `json:"seller,omitempty"`
}

// ListedAssetResponse is one entry in GET /v1/listings.
type ListedAssetResponse struct {
	AssetID  int64  `json:"asset_id"`
	Owner    string `json:"owner"`
	TokenURI string `json:"token_uri"`
	Price    int64  `json:"price"`
	Seller   string `json:"seller"`
}

// PayoutResponse is the JSON response for POST /v1/withdraw.
type PayoutResponse struct {
	PayoutID string `json:"payout_id"`
	Amount   int64  `json:"amount"`
}

// MeResponse is the JSON response for GET /v1/me.
type MeResponse struct {
	PrincipalID string   `json:"principal_id"`
	Roles       []string `json:"roles"`
	Balance     int64    `json:"balance"`
}

func (s *Server) handleGrantRole(w http.ResponseWriter, r *http.Request) {
	var req GrantRoleRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.market.GrantRole(r.Context(), req.PrincipalID, store.RoleName(req.Role)); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

func (s *Server) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	var req GrantRoleRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.market.RevokeRole(r.Context(), req.PrincipalID, store.RoleName(req.Role)); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (s *Server) handleCreateAndList(w http.ResponseWriter, r *http.Request) {
	var req CreateAssetRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	assetID, err := s.market.CreateAndList(r.Context(), req.TokenURI, req.Price)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, CreateAssetResponse{AssetID: assetID})
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathAssetID(r)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid asset id"})
		return
	}

	asset, err := s.market.GetAsset(r.Context(), assetID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := AssetResponse{
		AssetID:  asset.ID,
		Owner:    asset.Owner,
		TokenURI: asset.TokenURI,
	}
	if listing, err := s.store.GetListing(r.Context(), assetID); err == nil {
		resp.Listed = listing.Listed
		resp.Price = listing.Price
		resp.Seller = listing.Seller
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathAssetID(r)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid asset id"})
		return
	}

	var req PriceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.market.SetPrice(r.Context(), assetID, req.Price); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathAssetID(r)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid asset id"})
		return
	}

	var req PriceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.market.List(r.Context(), assetID, req.Price); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "listed"})
}

func (s *Server) handleDelist(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathAssetID(r)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid asset id"})
		return
	}

	if err := s.market.Delist(r.Context(), assetID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "delisted"})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathAssetID(r)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid asset id"})
		return
	}

	var req BuyRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := s.market.Buy(r.Context(), assetID, req.Payment)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, SaleResponse{
		AssetID: result.AssetID,
		Buyer:   result.Buyer,
		Seller:  result.Seller,
		Price:   result.Price,
		Refund:  result.Refund,
	})
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.market.AllListed(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]ListedAssetResponse, len(listings))
	for i, l := range listings {
		resp[i] = ListedAssetResponse{
			AssetID:  l.AssetID,
			Owner:    l.Owner,
			TokenURI: l.TokenURI,
			Price:    l.Price,
			Seller:   l.Seller,
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"listings": resp})
}

func (s *Server) handleMyAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.market.MyAssets(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]AssetResponse, len(assets))
	for i, a := range assets {
		resp[i] = AssetResponse{
			AssetID:  a.ID,
			Owner:    a.Owner,
			TokenURI: a.TokenURI,
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"assets": resp})
}

func (s *Server) handleCounter(w http.ResponseWriter, r *http.Request) {
	counter, err := s.market.TokenIDCounter(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"counter": counter})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	payout, err := s.market.Withdraw(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, PayoutResponse{PayoutID: payout.ID, Amount: payout.Amount})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustFromContext(r.Context())

	balance, err := s.market.MyBalance(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, MeResponse{
		PrincipalID: authCtx.PrincipalID,
		Roles:       authCtx.Roles,
		Balance:     balance,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := parseLimit(raw); err == nil {
			limit = n
		}
	}

	events, err := s.market.Events(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
