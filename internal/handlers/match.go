package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"tandem-backend/internal/apperr"
	"tandem-backend/internal/models"
	"tandem-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MatchHandler owns the tandem match record-write surface. Every write runs
// the state-machine triggers against the before/after snapshots.
type MatchHandler struct {
	matches *services.MatchService
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(matches *services.MatchService) *MatchHandler {
	return &MatchHandler{matches: matches}
}

// CreateMatchRequest is the request body for proposing a match.
type CreateMatchRequest struct {
	Requester string     `json:"requester"`
	Local     string     `json:"local"`
	Newcomer  string     `json:"newcomer"`
	Requested *time.Time `json:"requested,omitempty"`
}

// CreateMatch handles POST /api/v1/matches.
func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var req CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.New(apperr.InvalidArgument, "invalid request body"))
		return
	}
	match := models.TandemMatch{
		Requester: req.Requester,
		Local:     req.Local,
		Newcomer:  req.Newcomer,
	}
	if req.Requested != nil {
		match.Requested = *req.Requested
	}
	id, err := h.matches.Create(r.Context(), match)
	if err != nil {
		log.Error().Err(err).Str("local", req.Local).Str("newcomer", req.Newcomer).Msg("Failed to create match")
		respondError(w, err)
		return
	}
	log.Info().Str("match_id", id).Str("local", req.Local).Str("newcomer", req.Newcomer).Msg("Match created")
	respond(w, "match created", map[string]any{"id": id})
}

// UpdateMatchRequest is the partial-field payload for a match update. Only
// the lifecycle fields are writable through this surface.
type UpdateMatchRequest struct {
	Enabled *bool              `json:"enabled,omitempty"`
	State   *models.MatchState `json:"state,omitempty"`
}

// UpdateMatch handles PATCH /api/v1/matches/{match_id}.
func (h *MatchHandler) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "match_id")
	if matchID == "" {
		respondError(w, apperr.New(apperr.InvalidArgument, "match_id is required"))
		return
	}
	var req UpdateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.New(apperr.InvalidArgument, "invalid request body"))
		return
	}
	fields := map[string]any{}
	if req.Enabled != nil {
		fields["enabled"] = *req.Enabled
	}
	if req.State != nil {
		switch *req.State {
		case models.MatchRequested, models.MatchConfirmed, models.MatchDeclined, models.MatchRerequested:
			fields["state"] = *req.State
		default:
			respondError(w, apperr.New(apperr.InvalidArgument, "unknown match state"))
			return
		}
	}
	if len(fields) == 0 {
		respondError(w, apperr.New(apperr.InvalidArgument, "no fields to update"))
		return
	}
	if err := h.matches.Update(r.Context(), matchID, fields); err != nil {
		log.Error().Err(err).Str("match_id", matchID).Msg("Failed to update match")
		respondError(w, err)
		return
	}
	log.Info().Str("match_id", matchID).Msg("Match updated")
	respond(w, "match updated", nil)
}
