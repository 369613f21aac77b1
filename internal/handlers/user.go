package handlers

import (
	"encoding/json"
	"net/http"

	"tandem-backend/internal/apperr"
	"tandem-backend/internal/models"
	"tandem-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// UserHandler owns the user record write surface.
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// CreateUserRequest is the request body for creating a user record.
type CreateUserRequest struct {
	ID              string          `json:"id,omitempty"`
	LocalOrNewcomer models.UserKind `json:"localOrNewcomer"`
	Address         *models.Address `json:"address,omitempty"`
}

// CreateUser handles POST /api/v1/users.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.New(apperr.InvalidArgument, "invalid request body"))
		return
	}
	if req.LocalOrNewcomer != models.KindLocal && req.LocalOrNewcomer != models.KindNewcomer {
		respondError(w, apperr.New(apperr.InvalidArgument, "localOrNewcomer must be local or newcomer"))
		return
	}
	uid := req.ID
	if uid == "" {
		uid = uuid.New().String()
	}
	fields := map[string]any{
		"localOrNewcomer": req.LocalOrNewcomer,
		"localMatch":      nil,
		"newcomerMatches": []string{},
		"matchConfirmed":  false,
	}
	if req.Address != nil {
		fields["address"] = req.Address
	}
	if err := h.users.Create(r.Context(), uid, fields); err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("Failed to create user")
		respondError(w, err)
		return
	}
	log.Info().Str("user_id", uid).Msg("User created")
	respond(w, "user created", map[string]any{"id": uid})
}

// UpdateUserRequest is the partial-field payload for a user update.
type UpdateUserRequest struct {
	Address *models.Address `json:"address,omitempty"`
}

// UpdateUser handles PATCH /api/v1/users/{user_id}.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "user_id")
	if uid == "" {
		respondError(w, apperr.New(apperr.InvalidArgument, "user_id is required"))
		return
	}
	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.New(apperr.InvalidArgument, "invalid request body"))
		return
	}
	if req.Address == nil {
		respondError(w, apperr.New(apperr.InvalidArgument, "no fields to update"))
		return
	}
	if err := h.users.Update(r.Context(), uid, map[string]any{"address": req.Address}); err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("Failed to update user")
		respondError(w, err)
		return
	}
	log.Info().Str("user_id", uid).Msg("User updated")
	respond(w, "user updated", nil)
}

// DeleteUser handles DELETE /api/v1/users/{user_id}.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "user_id")
	if uid == "" {
		respondError(w, apperr.New(apperr.InvalidArgument, "user_id is required"))
		return
	}
	if err := h.users.Delete(r.Context(), uid); err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("Failed to delete user")
		respondError(w, err)
		return
	}
	log.Info().Str("user_id", uid).Msg("User deleted")
	respond(w, "user deleted", nil)
}
