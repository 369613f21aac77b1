package services

import (
	"context"
	"fmt"

	"tandem-backend/internal/apperr"
	"tandem-backend/internal/diff"
	"tandem-backend/internal/models"
	"tandem-backend/internal/repository"
	"tandem-backend/internal/tasks"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// locationField watches the nested event location for changes.
var locationField = diff.Field{
	Name: "location",
	Sub:  []diff.Field{diff.Named("street"), diff.Named("zipCode"), diff.Named("city")},
}

// EventService owns the event record write surface and its triggers: geodata
// generation from the event location and the admin fan-out when a participant
// joins.
type EventService struct {
	docs     DocumentStore
	geodata  *GeodataService
	notifier Notifier
}

// NewEventService creates an event service.
func NewEventService(docs DocumentStore, geodata *GeodataService, notifier Notifier) *EventService {
	return &EventService{docs: docs, geodata: geodata, notifier: notifier}
}

// Create stores a new event record and generates its geodata sub-document.
// Trigger failures are logged and swallowed; the record write has already
// happened.
func (s *EventService) Create(ctx context.Context, id string, fields map[string]any) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}
	if _, err := s.docs.Create(ctx, eventPath(id), fields); err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}
	if err := s.generateGeodata(ctx, id); err != nil {
		log.Error().Err(err).Str("event_id", id).Msg("Event geodata trigger failed")
	}
	return id, nil
}

// Update applies a partial update to an event record and regenerates the
// geodata sub-document when the location changed.
func (s *EventService) Update(ctx context.Context, id string, fields map[string]any) error {
	before, err := s.docs.Get(ctx, eventPath(id))
	if err != nil {
		return fmt.Errorf("failed to load event %s: %w", id, err)
	}
	if before == nil {
		return apperr.New(apperr.NotFound, "event not found")
	}
	if _, err := s.docs.Update(ctx, eventPath(id), fields); err != nil {
		return fmt.Errorf("failed to update event %s: %w", id, err)
	}
	after, err := s.docs.Get(ctx, eventPath(id))
	if err != nil {
		return fmt.Errorf("failed to reload event %s: %w", id, err)
	}
	if after == nil {
		return apperr.New(apperr.NotFound, "event not found")
	}
	if diff.Changed(before.Data, after.Data, locationField) {
		if err := s.generateGeodata(ctx, id); err != nil {
			log.Error().Err(err).Str("event_id", id).Msg("Event geodata trigger failed")
		}
	}
	return nil
}

// AddParticipant stores a participant record under the event and fans a
// notification out to every admin user. Fan-out failures are logged and
// swallowed.
func (s *EventService) AddParticipant(ctx context.Context, eventID, participantID string) (string, error) {
	event, err := s.docs.Get(ctx, eventPath(eventID))
	if err != nil {
		return "", fmt.Errorf("failed to load event %s: %w", eventID, err)
	}
	if event == nil {
		return "", apperr.New(apperr.NotFound, "event not found")
	}
	if participantID == "" {
		participantID = uuid.New().String()
	}
	if _, err := s.docs.Create(ctx, participantPath(eventID, participantID), map[string]any{
		"participant": participantID,
	}); err != nil {
		return "", fmt.Errorf("failed to add participant to event %s: %w", eventID, err)
	}
	if err := s.handleParticipantCreated(ctx, eventID, participantID); err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("Participant notification trigger failed")
	}
	return participantID, nil
}

// generateGeodata resolves the event location and upserts the result as the
// event's geodata sub-document.
func (s *EventService) generateGeodata(ctx context.Context, id string) error {
	doc, err := s.docs.Get(ctx, eventPath(id))
	if err != nil {
		return fmt.Errorf("failed to load event %s: %w", id, err)
	}
	if doc == nil {
		return fmt.Errorf("event %s not found", id)
	}
	var event models.Event
	if err := doc.DataTo(&event); err != nil {
		return err
	}
	if event.Location == nil {
		return fmt.Errorf("malformed event %s: missing location", id)
	}
	entry, err := s.geodata.Resolve(ctx, *event.Location)
	if err != nil {
		return err
	}
	if _, err := s.docs.Upsert(ctx, eventGeodataPath(id), entryFields(entry), true); err != nil {
		return fmt.Errorf("failed to store geodata for event %s: %w", id, err)
	}
	return nil
}

// handleParticipantCreated notifies every admin user about the new
// participant. All deliveries run concurrently; any failure fails the
// trigger.
func (s *EventService) handleParticipantCreated(ctx context.Context, eventID, participantID string) error {
	admins, err := s.docs.Query(ctx, userCollection, []repository.Constraint{
		{Field: "role", Op: "==", Value: models.RoleAdmin},
	}, repository.QueryOptions{})
	if err != nil {
		return fmt.Errorf("failed to query admin users: %w", err)
	}
	if len(admins) == 0 {
		return fmt.Errorf("no admins found")
	}
	jobs := make([]tasks.Task, 0, len(admins))
	for _, admin := range admins {
		jobs = append(jobs, func(ctx context.Context) error {
			return s.notifier.Notify(ctx, admin.ID,
				"New Event Participant",
				"A new participant has joined your event. Tap to go to the event.",
				map[string]string{
					"participant": participantID,
					"event":       eventID,
				})
		})
	}
	if err := tasks.FirstError(tasks.RunAll(ctx, jobs)); err != nil {
		return fmt.Errorf("some participant notifications could not be sent: %w", err)
	}
	return nil
}

func eventPath(id string) string {
	return eventCollection + "/" + id
}

func eventGeodataPath(id string) string {
	return eventCollection + "/" + id + "/data/geodata"
}

func participantPath(eventID, participantID string) string {
	return eventCollection + "/" + eventID + "/participants/" + participantID
}
