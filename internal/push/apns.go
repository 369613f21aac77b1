package push

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// APNSTransport delivers notifications through Apple Push Notification
// service using token-based authentication.
type APNSTransport struct {
	client *apns2.Client
	topic  string
}

// APNSConfig carries the credentials for token-based APNs auth.
type APNSConfig struct {
	KeyPath    string
	KeyID      string
	TeamID     string
	Topic      string
	Production bool
}

// NewAPNSTransport creates an APNs-backed transport.
func NewAPNSTransport(cfg APNSConfig) (*APNSTransport, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}
	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}
	return &APNSTransport{client: client, topic: cfg.Topic}, nil
}

// SendAll pushes every message and counts the ones APNs did not accept.
func (t *APNSTransport) SendAll(ctx context.Context, messages []Message) (int, error) {
	failures := 0
	for _, msg := range messages {
		body := payload.NewPayload().AlertTitle(msg.Title).AlertBody(msg.Body)
		for key, value := range msg.Data {
			body = body.Custom(key, value)
		}
		notification := &apns2.Notification{
			DeviceToken: msg.Token,
			Topic:       t.topic,
			Payload:     body,
		}
		res, err := t.client.PushWithContext(ctx, notification)
		if err != nil {
			log.Error().Err(err).Msg("Push delivery failed")
			failures++
			continue
		}
		if !res.Sent() {
			log.Warn().Str("reason", res.Reason).Int("status", res.StatusCode).Msg("Push rejected by APNs")
			failures++
		}
	}
	return failures, nil
}
