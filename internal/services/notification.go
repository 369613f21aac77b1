package services

import (
	"context"
	"fmt"

	"tandem-backend/internal/apperr"
	"tandem-backend/internal/models"
	"tandem-backend/internal/push"
	"tandem-backend/internal/repository"
	"tandem-backend/internal/timeutil"

	"github.com/rs/zerolog/log"
)

// failureRateThreshold is the share of a batch that may fail before the whole
// delivery counts as failed. A coarse circuit-breaker against silently
// notifying nobody, not a per-token retry.
const failureRateThreshold = 0.7

// NotificationService registers per-user delivery tokens and fans
// notifications out to every token of a user.
type NotificationService struct {
	docs      DocumentStore
	transport push.Transport
	now       timeutil.Clock
}

// NewNotificationService creates a new notification service.
func NewNotificationService(docs DocumentStore, transport push.Transport) *NotificationService {
	return &NotificationService{docs: docs, transport: transport, now: timeutil.Now}
}

// RegisterToken adds a delivery token to the user's token set. Registering a
// token that is already present is a no-op reported through the added flag.
func (s *NotificationService) RegisterToken(ctx context.Context, userID, tokenValue string) (added bool, err error) {
	if tokenValue == "" {
		return false, apperr.New(apperr.InvalidArgument, "missing token")
	}
	doc, err := s.docs.Get(ctx, tokenPath(userID))
	if err != nil {
		return false, fmt.Errorf("failed to load token document: %w", err)
	}
	if doc != nil {
		var tokens models.TokenDocument
		if err := doc.DataTo(&tokens); err != nil {
			return false, err
		}
		for _, entry := range tokens.Tokens {
			if entry.Token == tokenValue {
				return false, nil
			}
		}
	}
	entry := models.DeviceToken{Token: tokenValue, RegisteredAt: s.now()}
	if _, err := s.docs.Upsert(ctx, tokenPath(userID), map[string]any{
		"tokens": repository.ArrayUnion(entry),
	}, true); err != nil {
		return false, fmt.Errorf("failed to store token: %w", err)
	}
	return true, nil
}

// RemoveToken removes an exact token entry from the user's token set.
func (s *NotificationService) RemoveToken(ctx context.Context, userID, tokenValue string) error {
	if tokenValue == "" {
		return apperr.New(apperr.InvalidArgument, "missing token")
	}
	doc, err := s.docs.Get(ctx, tokenPath(userID))
	if err != nil {
		return fmt.Errorf("failed to load token document: %w", err)
	}
	if doc == nil {
		return apperr.New(apperr.NotFound, "no tokens registered")
	}
	var tokens models.TokenDocument
	if err := doc.DataTo(&tokens); err != nil {
		return err
	}
	var toDelete *models.DeviceToken
	for _, entry := range tokens.Tokens {
		if entry.Token == tokenValue {
			toDelete = &entry
			break
		}
	}
	if toDelete == nil {
		return apperr.New(apperr.NotFound, "token not registered")
	}
	if _, err := s.docs.Upsert(ctx, tokenPath(userID), map[string]any{
		"tokens": repository.ArrayRemove(*toDelete),
	}, true); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// Notify builds one message per registered token of the user and delivers
// them in a single batch. The delivery counts as failed when more than 70% of
// the batch fails. Callers at trigger boundaries treat a failure as "log and
// continue", never as fatal.
func (s *NotificationService) Notify(ctx context.Context, userID, title, body string, data map[string]string) error {
	doc, err := s.docs.Get(ctx, tokenPath(userID))
	if err != nil {
		return fmt.Errorf("failed to load token document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("no tokens found for user %s", userID)
	}
	var tokens models.TokenDocument
	if err := doc.DataTo(&tokens); err != nil {
		return err
	}
	if len(tokens.Tokens) == 0 {
		return fmt.Errorf("no tokens found for user %s", userID)
	}
	messages := make([]push.Message, 0, len(tokens.Tokens))
	for _, entry := range tokens.Tokens {
		messages = append(messages, push.Message{
			Token: entry.Token,
			Title: title,
			Body:  body,
			Data:  data,
		})
	}
	failures, err := s.transport.SendAll(ctx, messages)
	if err != nil {
		return fmt.Errorf("failed to deliver notifications: %w", err)
	}
	if float64(failures) > float64(len(messages))*failureRateThreshold {
		return fmt.Errorf("most notifications for user %s failed (%d of %d)", userID, failures, len(messages))
	}
	log.Debug().Str("user_id", userID).Int("messages", len(messages)).Int("failures", failures).Msg("Notifications delivered")
	return nil
}

func tokenPath(userID string) string {
	return tokenCollection + "/" + userID
}
