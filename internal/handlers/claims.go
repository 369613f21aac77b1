package handlers

import (
	"encoding/json"
	"net/http"

	"tandem-backend/internal/apperr"
	"tandem-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ClaimsHandler exposes the admin-only debug claims workflow.
type ClaimsHandler struct {
	claims *services.ClaimsService
}

// NewClaimsHandler creates a new claims handler.
func NewClaimsHandler(claims *services.ClaimsService) *ClaimsHandler {
	return &ClaimsHandler{claims: claims}
}

// CreateDebugClaims handles POST /api/v1/debug-claims/{user_id}.
func (h *ClaimsHandler) CreateDebugClaims(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "user_id")
	if uid == "" {
		respondError(w, apperr.New(apperr.InvalidArgument, "user_id is required"))
		return
	}
	if err := h.claims.CreateDebugDocument(r.Context(), uid); err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("Failed to create debug claims document")
		respondError(w, err)
		return
	}
	respond(w, "debug claims document created", nil)
}

// UpdateDebugClaimsRequest carries proposed claims and the apply flag.
type UpdateDebugClaimsRequest struct {
	ApplyChanges bool           `json:"applyChanges"`
	NewClaims    map[string]any `json:"newClaims,omitempty"`
}

// UpdateDebugClaims handles PATCH /api/v1/debug-claims/{user_id}.
func (h *ClaimsHandler) UpdateDebugClaims(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "user_id")
	if uid == "" {
		respondError(w, apperr.New(apperr.InvalidArgument, "user_id is required"))
		return
	}
	var req UpdateDebugClaimsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.New(apperr.InvalidArgument, "invalid request body"))
		return
	}
	fields := map[string]any{"applyChanges": req.ApplyChanges}
	if req.NewClaims != nil {
		fields["newClaims"] = req.NewClaims
	}
	if err := h.claims.UpdateDebugDocument(r.Context(), uid, fields); err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("Failed to update debug claims document")
		respondError(w, err)
		return
	}
	respond(w, "debug claims document updated", nil)
}
