package handlers

import (
	"encoding/json"
	"net/http"

	"tandem-backend/internal/apperr"
	"tandem-backend/internal/models"
	"tandem-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// GeodataHandler exposes the geodata resolution endpoint.
type GeodataHandler struct {
	geodata *services.GeodataService
}

// NewGeodataHandler creates a new geodata handler.
func NewGeodataHandler(geodata *services.GeodataService) *GeodataHandler {
	return &GeodataHandler{geodata: geodata}
}

// PullGeodataRequest is the request body for resolving an address.
type PullGeodataRequest struct {
	Address *models.Address `json:"address"`
}

// PullGeodata handles POST /api/v1/geodata.
func (h *GeodataHandler) PullGeodata(w http.ResponseWriter, r *http.Request) {
	var req PullGeodataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.New(apperr.InvalidArgument, "invalid request body"))
		return
	}
	if req.Address == nil {
		respondError(w, apperr.New(apperr.InvalidArgument, "missing arguments"))
		return
	}
	entry, err := h.geodata.Resolve(r.Context(), *req.Address)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve geodata")
		respondError(w, apperr.Wrap(apperr.Unknown, "geodata could not be created", err))
		return
	}
	respond(w, "pull geodata successfully", map[string]any{"location": entry.Location})
}
