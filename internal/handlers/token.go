package handlers

import (
	"encoding/json"
	"net/http"

	"tandem-backend/internal/apperr"
	"tandem-backend/internal/middleware"
	"tandem-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// TokenHandler exposes the push-token registration endpoints.
type TokenHandler struct {
	notifications *services.NotificationService
}

// NewTokenHandler creates a new token handler.
func NewTokenHandler(notifications *services.NotificationService) *TokenHandler {
	return &TokenHandler{notifications: notifications}
}

// TokenRequest is the request body carrying a device token.
type TokenRequest struct {
	Token string `json:"token"`
}

// RegisterToken handles POST /api/v1/push-tokens.
func (h *TokenHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.New(apperr.InvalidArgument, "invalid request body"))
		return
	}
	added, err := h.notifications.RegisterToken(r.Context(), userID, req.Token)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to register token")
		respondError(w, err)
		return
	}
	if !added {
		respond(w, "token already exists", nil)
		return
	}
	log.Info().Str("user_id", userID).Msg("Push token registered")
	respond(w, "success", nil)
}

// RemoveToken handles DELETE /api/v1/push-tokens.
func (h *TokenHandler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.New(apperr.InvalidArgument, "invalid request body"))
		return
	}
	if err := h.notifications.RemoveToken(r.Context(), userID, req.Token); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to remove token")
		respondError(w, err)
		return
	}
	log.Info().Str("user_id", userID).Msg("Push token removed")
	respond(w, "success", nil)
}
