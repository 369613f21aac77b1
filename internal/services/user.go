package services

import (
	"context"
	"fmt"

	"tandem-backend/internal/apperr"
	"tandem-backend/internal/diff"
	"tandem-backend/internal/identity"
	"tandem-backend/internal/models"
	"tandem-backend/internal/tasks"

	"github.com/rs/zerolog/log"
)

// addressField watches the nested address object for changes.
var addressField = diff.Field{
	Name: "address",
	Sub:  []diff.Field{diff.Named("street"), diff.Named("zipCode"), diff.Named("city")},
}

// UserService owns the user record write surface and the triggers hanging
// off it: default role assignment, address-driven geodata generation and the
// match cleanup that follows a deletion.
type UserService struct {
	docs     DocumentStore
	refs     ReferenceStore
	provider identity.Provider
	claims   *ClaimsService
	geodata  *GeodataService
	matches  *MatchService
}

// NewUserService creates a user service.
func NewUserService(docs DocumentStore, refs ReferenceStore, provider identity.Provider, claims *ClaimsService, geodata *GeodataService, matches *MatchService) *UserService {
	return &UserService{docs: docs, refs: refs, provider: provider, claims: claims, geodata: geodata, matches: matches}
}

// Create stores a new user record and runs the creation triggers: the
// default USER role on the identity and, when an address is present, the
// geodata sub-document. Trigger failures are logged and swallowed.
func (s *UserService) Create(ctx context.Context, uid string, fields map[string]any) error {
	if uid == "" {
		return apperr.New(apperr.InvalidArgument, "missing user id")
	}
	if _, err := s.docs.Create(ctx, userPath(uid), fields); err != nil {
		return fmt.Errorf("failed to create user %s: %w", uid, err)
	}
	jobs := []tasks.Task{
		func(ctx context.Context) error {
			return s.claims.AssignRole(ctx, uid, models.RoleUser, 0)
		},
		func(ctx context.Context) error {
			if _, ok := fields["address"]; !ok {
				return nil
			}
			return s.geodata.GenerateUserGeodata(ctx, uid, true)
		},
	}
	for _, err := range tasks.RunAll(ctx, jobs) {
		if err != nil {
			log.Error().Err(err).Str("user_id", uid).Msg("User creation trigger failed")
		}
	}
	return nil
}

// Update applies a partial update to a user record and regenerates the
// geodata sub-document when the address changed.
func (s *UserService) Update(ctx context.Context, uid string, fields map[string]any) error {
	before, err := s.docs.Get(ctx, userPath(uid))
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", uid, err)
	}
	if before == nil {
		return apperr.New(apperr.NotFound, "user not found")
	}
	if _, err := s.docs.Update(ctx, userPath(uid), fields); err != nil {
		return fmt.Errorf("failed to update user %s: %w", uid, err)
	}
	after, err := s.docs.Get(ctx, userPath(uid))
	if err != nil {
		return fmt.Errorf("failed to reload user %s: %w", uid, err)
	}
	if after == nil {
		return apperr.New(apperr.NotFound, "user not found")
	}
	if diff.Changed(before.Data, after.Data, addressField) {
		if _, ok := after.Data["address"].(map[string]any); ok {
			if err := s.geodata.GenerateUserGeodata(ctx, uid, true); err != nil {
				log.Error().Err(err).Str("user_id", uid).Msg("User geodata trigger failed")
			}
		}
	}
	return nil
}

// Delete removes a user record, its identity, its per-user side documents
// and disables every match that referenced the user. The constituent writes
// run concurrently; each failure is logged independently.
func (s *UserService) Delete(ctx context.Context, uid string) error {
	doc, err := s.docs.Get(ctx, userPath(uid))
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", uid, err)
	}
	if doc == nil {
		return apperr.New(apperr.NotFound, "user not found")
	}
	if _, err := s.docs.Delete(ctx, userPath(uid)); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", uid, err)
	}
	jobs := []tasks.Task{
		func(ctx context.Context) error { return s.matches.CleanupDeletedUser(ctx, uid) },
		func(ctx context.Context) error {
			_, err := s.docs.Delete(ctx, userGeodataPath(uid))
			return err
		},
		func(ctx context.Context) error {
			_, err := s.docs.Delete(ctx, tokenPath(uid))
			return err
		},
		func(ctx context.Context) error { return s.refs.Delete(ctx, metadataRoot+"/"+uid) },
		func(ctx context.Context) error { return s.provider.DeleteUser(ctx, uid) },
	}
	for _, err := range tasks.RunAll(ctx, jobs) {
		if err != nil {
			log.Error().Err(err).Str("user_id", uid).Msg("User deletion cleanup step failed")
		}
	}
	return nil
}
