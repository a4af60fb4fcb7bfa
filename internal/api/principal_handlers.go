// ABOUTME: Handlers for principal registration, approval, and token issuance
// ABOUTME: Registration is open; approval and token minting are admin-gated

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumenarts/bazaar-gateway/internal/auth"
	"github.com/lumenarts/bazaar-gateway/internal/store"
)

// Default TTL for issued tokens: 30 days.
const defaultTokenTTL = 30 * 24 * time.Hour

// RegisterRequest is the JSON request body for POST /v1/register.
type RegisterRequest struct {
	DisplayName string `json:"display_name"`
}

// RegisterResponse is the JSON response for POST /v1/register.
type RegisterResponse struct {
	PrincipalID string `json:"principal_id"`
	Status      string `json:"status"`
}

// PrincipalResponse is one entry in GET /v1/principals.
type PrincipalResponse struct {
	PrincipalID string   `json:"principal_id"`
	DisplayName string   `json:"display_name"`
	Status      string   `json:"status"`
	Roles       []string `json:"roles"`
	CreatedAt   string   `json:"created_at"`
}

// CreateTokenRequest is the JSON request body for POST /v1/tokens.
type CreateTokenRequest struct {
	PrincipalID string `json:"principal_id"`
}

// CreateTokenResponse is the JSON response for POST /v1/tokens.
type CreateTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "display_name required"})
		return
	}

	p := &store.Principal{
		ID:          uuid.NewString(),
		DisplayName: req.DisplayName,
		Status:      store.PrincipalStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreatePrincipal(r.Context(), p); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, RegisterResponse{
		PrincipalID: p.ID,
		Status:      string(p.Status),
	})
}

func (s *Server) handleListPrincipals(w http.ResponseWriter, r *http.Request) {
	filter := store.PrincipalFilter{}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := store.PrincipalStatus(raw)
		filter.Status = &status
	}

	principals, err := s.store.ListPrincipals(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]PrincipalResponse, len(principals))
	for i := range principals {
		p := &principals[i]
		roles, _ := s.store.ListRoles(r.Context(), p.ID)
		roleStrings := make([]string, len(roles))
		for j, role := range roles {
			roleStrings[j] = string(role)
		}
		resp[i] = PrincipalResponse{
			PrincipalID: p.ID,
			DisplayName: p.DisplayName,
			Status:      string(p.Status),
			Roles:       roleStrings,
			CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"principals": resp})
}

func (s *Server) handleApprovePrincipal(w http.ResponseWriter, r *http.Request) {
	s.updatePrincipalStatus(w, r, store.PrincipalStatusApproved)
}

func (s *Server) handleRevokePrincipal(w http.ResponseWriter, r *http.Request) {
	s.updatePrincipalStatus(w, r, store.PrincipalStatusRevoked)
}

func (s *Server) updatePrincipalStatus(w http.ResponseWriter, r *http.Request, status store.PrincipalStatus) {
	id := r.PathValue("id")
	if id == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "principal id required"})
		return
	}

	if err := s.store.UpdatePrincipalStatus(r.Context(), id, status); err != nil {
		s.writeError(w, err)
		return
	}

	actor := auth.MustFromContext(r.Context())
	s.logger.Info("principal status changed",
		"principal_id", id, "status", status, "actor", actor.PrincipalID)

	s.writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req CreateTokenRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.PrincipalID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "principal_id required"})
		return
	}

	principal, err := s.store.GetPrincipal(r.Context(), req.PrincipalID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Only approved principals can hold live tokens
	if principal.Status != store.PrincipalStatusApproved {
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: "principal is not approved"})
		return
	}

	generator, ok := s.verifier.(interface {
		Generate(principalID string, expiresIn time.Duration) (string, error)
	})
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "token generation not configured"})
		return
	}

	token, err := generator.Generate(principal.ID, defaultTokenTTL)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, CreateTokenResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(defaultTokenTTL).UTC().Format(time.RFC3339),
	})
}
