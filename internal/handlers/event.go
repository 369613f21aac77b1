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

// EventHandler owns the event record write surface.
type EventHandler struct {
	events *services.EventService
}

// NewEventHandler creates a new event handler.
func NewEventHandler(events *services.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// CreateEventRequest is the request body for creating an event.
type CreateEventRequest struct {
	ID               string            `json:"id,omitempty"`
	EventTitle       string            `json:"eventTitle"`
	EventDescription string            `json:"eventDescription"`
	Date             *time.Time        `json:"date,omitempty"`
	Host             string            `json:"host"`
	ContactPerson    string            `json:"contactPerson"`
	EventEmail       string            `json:"eventEmail"`
	EventPhoneNumber string            `json:"eventPhoneNumber"`
	WhatsAppLink     string            `json:"whatsAppLink"`
	Location         *models.Address   `json:"location"`
	Material         *models.Materials `json:"material,omitempty"`
}

// CreateEvent handles POST /api/v1/events.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.New(apperr.InvalidArgument, "invalid request body"))
		return
	}
	if req.EventTitle == "" {
		respondError(w, apperr.New(apperr.InvalidArgument, "eventTitle is required"))
		return
	}
	if req.Location == nil {
		respondError(w, apperr.New(apperr.InvalidArgument, "location is required"))
		return
	}
	fields := map[string]any{
		"eventTitle":       req.EventTitle,
		"eventDescription": req.EventDescription,
		"host":             req.Host,
		"contactPerson":    req.ContactPerson,
		"eventEmail":       req.EventEmail,
		"eventPhoneNumber": req.EventPhoneNumber,
		"whatsAppLink":     req.WhatsAppLink,
		"location":         req.Location,
	}
	if req.Date != nil {
		fields["date"] = *req.Date
	}
	if req.Material != nil {
		fields["material"] = req.Material
	}
	id, err := h.events.Create(r.Context(), req.ID, fields)
	if err != nil {
		log.Error().Err(err).Str("title", req.EventTitle).Msg("Failed to create event")
		respondError(w, err)
		return
	}
	log.Info().Str("event_id", id).Msg("Event created")
	respond(w, "event created", map[string]any{"id": id})
}

// UpdateEventRequest is the partial-field payload for an event update.
type UpdateEventRequest struct {
	EventTitle       *string           `json:"eventTitle,omitempty"`
	EventDescription *string           `json:"eventDescription,omitempty"`
	Date             *time.Time        `json:"date,omitempty"`
	Location         *models.Address   `json:"location,omitempty"`
	Material         *models.Materials `json:"material,omitempty"`
}

// UpdateEvent handles PATCH /api/v1/events/{event_id}.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")
	if eventID == "" {
		respondError(w, apperr.New(apperr.InvalidArgument, "event_id is required"))
		return
	}
	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.New(apperr.InvalidArgument, "invalid request body"))
		return
	}
	fields := map[string]any{}
	if req.EventTitle != nil {
		fields["eventTitle"] = *req.EventTitle
	}
	if req.EventDescription != nil {
		fields["eventDescription"] = *req.EventDescription
	}
	if req.Date != nil {
		fields["date"] = *req.Date
	}
	if req.Location != nil {
		fields["location"] = req.Location
	}
	if req.Material != nil {
		fields["material"] = req.Material
	}
	if len(fields) == 0 {
		respondError(w, apperr.New(apperr.InvalidArgument, "no fields to update"))
		return
	}
	if err := h.events.Update(r.Context(), eventID, fields); err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("Failed to update event")
		respondError(w, err)
		return
	}
	log.Info().Str("event_id", eventID).Msg("Event updated")
	respond(w, "event updated", nil)
}

// AddParticipantRequest optionally names the joining participant; the
// authenticated caller id is the usual value.
type AddParticipantRequest struct {
	Participant string `json:"participant,omitempty"`
}

// AddParticipant handles POST /api/v1/events/{event_id}/participants.
func (h *EventHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")
	if eventID == "" {
		respondError(w, apperr.New(apperr.InvalidArgument, "event_id is required"))
		return
	}
	var req AddParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.New(apperr.InvalidArgument, "invalid request body"))
		return
	}
	participantID, err := h.events.AddParticipant(r.Context(), eventID, req.Participant)
	if err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("Failed to add participant")
		respondError(w, err)
		return
	}
	log.Info().Str("event_id", eventID).Str("participant_id", participantID).Msg("Participant added")
	respond(w, "participant added", map[string]any{"id": participantID})
}
