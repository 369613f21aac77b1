package services

import (
	"context"
	"fmt"
	"time"

	"tandem-backend/internal/identity"
	"tandem-backend/internal/models"
	"tandem-backend/internal/repository"
	"tandem-backend/internal/timeutil"

	"github.com/rs/zerolog/log"
)

// RefreshNotifier pushes a claims-refresh signal to a user's live sessions.
type RefreshNotifier interface {
	NotifyClaimsRefresh(userID string, refreshTime time.Time) error
}

// ClaimsService writes authorization claims to the identity provider and
// mirrors a refresh signal into the key-value store so connected clients can
// pick up the change without a new login.
type ClaimsService struct {
	provider identity.Provider
	refs     ReferenceStore
	docs     DocumentStore
	hub      RefreshNotifier
	now      timeutil.Clock
}

// NewClaimsService creates a claims service. hub may be nil when no live
// session fan-out is wired.
func NewClaimsService(provider identity.Provider, refs ReferenceStore, docs DocumentStore, hub RefreshNotifier) *ClaimsService {
	return &ClaimsService{provider: provider, refs: refs, docs: docs, hub: hub, now: timeutil.Now}
}

// AssignRole sets {role, accessLevel} as the user's identity claims, then
// writes a refreshTime into the user's metadata record as an explicit
// cache-invalidation signal, and pushes the same signal to any live session.
func (s *ClaimsService) AssignRole(ctx context.Context, uid string, role models.Role, accessLevel int) error {
	claims := models.UserClaims{Role: role, AccessLevel: accessLevel}
	if accessLevel < models.MinAccessLevel || accessLevel > models.MaxAccessLevel {
		return fmt.Errorf("accessLevel %d out of range", accessLevel)
	}
	if err := s.provider.SetClaims(ctx, uid, claims.Map()); err != nil {
		return fmt.Errorf("failed to set claims for %s: %w", uid, err)
	}
	// Mirror the role onto the user record so role-scoped queries (admin
	// fan-outs) work against the document store.
	if _, err := s.docs.Upsert(ctx, userCollection+"/"+uid, map[string]any{
		"role": role,
	}, true); err != nil {
		return fmt.Errorf("failed to mirror role for %s: %w", uid, err)
	}
	refreshTime := s.now()
	if err := s.refs.Update(ctx, metadataRoot+"/"+uid, map[string]any{
		"refreshTime": refreshTime,
	}); err != nil {
		return fmt.Errorf("failed to write refresh signal for %s: %w", uid, err)
	}
	if s.hub != nil {
		if err := s.hub.NotifyClaimsRefresh(uid, refreshTime); err != nil {
			log.Debug().Err(err).Str("user_id", uid).Msg("No live session for claims refresh")
		}
	}
	return nil
}

// CurrentClaims returns the claims currently attached to the user's identity.
func (s *ClaimsService) CurrentClaims(ctx context.Context, uid string) (map[string]any, error) {
	user, err := s.provider.User(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity user %s: %w", uid, err)
	}
	return user.Claims, nil
}

// HandleDebugClaimsCreated mirrors the user's current claims into a freshly
// created debug claims document and resets its applyChanges flag.
func (s *ClaimsService) HandleDebugClaimsCreated(ctx context.Context, uid string) error {
	claims, err := s.CurrentClaims(ctx, uid)
	if err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("Failed to load claims for debug document")
		claims = map[string]any{}
	}
	if _, err := s.docs.Update(ctx, debugClaimsPath(uid), map[string]any{
		"applyChanges": false,
		"claims":       claims,
	}); err != nil {
		return fmt.Errorf("failed to mirror claims into debug document: %w", err)
	}
	return nil
}

// HandleDebugClaimsUpdated applies externally proposed claims when the
// document's applyChanges flag is set and the newClaims field passes strict
// validation. The outcome is always written back to the document.
func (s *ClaimsService) HandleDebugClaimsUpdated(ctx context.Context, uid string, after map[string]any) error {
	apply, _ := after["applyChanges"].(bool)
	if !apply {
		return nil
	}
	payload := map[string]any{"applyChanges": false}
	newClaims, _ := after["newClaims"].(map[string]any)
	parsed, parseErr := models.ParseUserClaims(newClaims)
	if parseErr != nil {
		log.Error().Err(parseErr).Str("user_id", uid).Msg("Missing or malformed debug claims")
		payload["error"] = "missing or malformed claims"
	} else if err := s.AssignRole(ctx, uid, parsed.Role, parsed.AccessLevel); err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("Failed to apply debug claims")
		payload["error"] = err.Error()
	} else {
		claims, err := s.CurrentClaims(ctx, uid)
		if err != nil {
			claims = map[string]any{}
		}
		payload["claims"] = claims
		payload["error"] = repository.DeleteField()
	}
	if _, err := s.docs.Update(ctx, debugClaimsPath(uid), payload); err != nil {
		return fmt.Errorf("failed to write debug claims outcome: %w", err)
	}
	return nil
}

// CreateDebugDocument writes a fresh debug claims document for a user and
// runs the creation trigger that mirrors the current claims into it.
func (s *ClaimsService) CreateDebugDocument(ctx context.Context, uid string) error {
	if _, err := s.docs.Create(ctx, debugClaimsPath(uid), map[string]any{
		"applyChanges": false,
	}); err != nil {
		return fmt.Errorf("failed to create debug claims document: %w", err)
	}
	if err := s.HandleDebugClaimsCreated(ctx, uid); err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("Debug claims creation trigger failed")
	}
	return nil
}

// UpdateDebugDocument merges fields into a user's debug claims document and
// runs the update trigger against the resulting snapshot.
func (s *ClaimsService) UpdateDebugDocument(ctx context.Context, uid string, fields map[string]any) error {
	if _, err := s.docs.Update(ctx, debugClaimsPath(uid), fields); err != nil {
		return fmt.Errorf("failed to update debug claims document: %w", err)
	}
	after, err := s.docs.Get(ctx, debugClaimsPath(uid))
	if err != nil || after == nil {
		return fmt.Errorf("failed to reload debug claims document: %w", err)
	}
	if err := s.HandleDebugClaimsUpdated(ctx, uid, after.Data); err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("Debug claims update trigger failed")
	}
	return nil
}

func debugClaimsPath(uid string) string {
	return debugClaimsCollection + "/" + uid
}
