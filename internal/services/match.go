package services

import (
	"context"
	"fmt"
	"time"

	"tandem-backend/internal/apperr"
	"tandem-backend/internal/diff"
	"tandem-backend/internal/models"
	"tandem-backend/internal/repository"
	"tandem-backend/internal/tasks"
	"tandem-backend/internal/timeutil"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Notifier fans a notification out to all delivery tokens of a user.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body string, data map[string]string) error
}

// MatchService is the tandem match lifecycle state machine. It validates
// transitions, cross-updates the two paired user records, triggers
// notifications and is reconciled by a periodic sweep that expires stale
// pending requests.
type MatchService struct {
	docs     DocumentStore
	notifier Notifier
	now      timeutil.Clock
	expiry   time.Duration
}

// NewMatchService creates a match service. expiry is the age after which a
// still-enabled request is swept, typically 24 hours.
func NewMatchService(docs DocumentStore, notifier Notifier, expiry time.Duration) *MatchService {
	return &MatchService{docs: docs, notifier: notifier, now: timeutil.Now, expiry: expiry}
}

// Create validates and stores a new match record, then runs the creation
// trigger. Trigger failures are logged, never propagated: the record write
// has already happened and there is no retry contract.
func (s *MatchService) Create(ctx context.Context, match models.TandemMatch) (string, error) {
	if match.Local == "" || match.Newcomer == "" {
		return "", apperr.New(apperr.InvalidArgument, "local and newcomer are required")
	}
	if match.Local == match.Newcomer {
		return "", apperr.New(apperr.InvalidArgument, "local and newcomer must be distinct users")
	}
	if match.Requester != match.Local && match.Requester != match.Newcomer {
		return "", apperr.New(apperr.InvalidArgument, "requester must be the local or the newcomer")
	}
	if match.Requested.IsZero() {
		match.Requested = s.now()
	}
	if match.State == "" {
		match.State = models.MatchRequested
	}
	match.Enabled = true

	id := uuid.New().String()
	fields := map[string]any{
		"enabled":   match.Enabled,
		"requested": match.Requested,
		"state":     match.State,
		"requester": match.Requester,
		"local":     match.Local,
		"newcomer":  match.Newcomer,
	}
	if _, err := s.docs.Create(ctx, matchPath(id), fields); err != nil {
		return "", fmt.Errorf("failed to create match: %w", err)
	}
	if err := s.handleCreated(ctx, &match); err != nil {
		log.Error().Err(err).Str("match_id", id).Msg("Match creation trigger failed")
	}
	return id, nil
}

// Update applies a partial update to a match record and evaluates the update
// triggers against the before/after snapshots. Trigger failures are logged
// and swallowed.
func (s *MatchService) Update(ctx context.Context, id string, fields map[string]any) error {
	before, err := s.docs.Get(ctx, matchPath(id))
	if err != nil {
		return fmt.Errorf("failed to load match %s: %w", id, err)
	}
	if before == nil {
		return apperr.New(apperr.NotFound, "match not found")
	}
	if _, err := s.docs.Update(ctx, matchPath(id), fields); err != nil {
		return fmt.Errorf("failed to update match %s: %w", id, err)
	}
	after, err := s.docs.Get(ctx, matchPath(id))
	if err != nil {
		return fmt.Errorf("failed to reload match %s: %w", id, err)
	}
	if after == nil {
		return apperr.New(apperr.NotFound, "match not found")
	}
	if err := s.handleUpdated(ctx, before.Data, after.Data); err != nil {
		log.Error().Err(err).Str("match_id", id).Msg("Match update trigger failed")
	}
	return nil
}

// handleCreated cross-links the two paired user records and notifies the
// party that did not initiate the request.
func (s *MatchService) handleCreated(ctx context.Context, match *models.TandemMatch) error {
	local, newcomer, err := s.loadPair(ctx, match)
	if err != nil {
		return err
	}
	if newcomer.LocalOrNewcomer == models.KindNewcomer {
		if _, err := s.docs.Update(ctx, userPath(match.Newcomer), map[string]any{
			"localMatch": match.Local,
		}); err != nil {
			return fmt.Errorf("failed to set local match on newcomer: %w", err)
		}
	}
	if local.LocalOrNewcomer == models.KindLocal {
		if _, err := s.docs.Update(ctx, userPath(match.Local), map[string]any{
			"newcomerMatches": repository.ArrayUnion(match.Newcomer),
		}); err != nil {
			return fmt.Errorf("failed to add newcomer match on local: %w", err)
		}
	}
	s.notify(ctx, match, "Tandem request", "You have a new tandem request")
	return nil
}

// handleUpdated evaluates the three update triggers in fixed order. They are
// not mutually exclusive; more than one may fire per update.
func (s *MatchService) handleUpdated(ctx context.Context, before, after map[string]any) error {
	var match models.TandemMatch
	if err := (&repository.Document{Data: after}).DataTo(&match); err != nil {
		return err
	}
	enabledChanged := diff.Changed(before, after, diff.Named("enabled"))
	stateChanged := diff.Changed(before, after, diff.Named("state"))

	if enabledChanged && !match.Enabled {
		if err := s.disable(ctx, &match); err != nil {
			return err
		}
	}
	if stateChanged && match.State == models.MatchDeclined {
		if err := s.disable(ctx, &match); err != nil {
			return err
		}
	}
	if stateChanged && match.State == models.MatchConfirmed {
		if err := s.confirm(ctx, &match); err != nil {
			return err
		}
	}
	return nil
}

// disable clears the pairing references on both user records and notifies
// the non-requesting party. Re-running on an already-cleared pair writes the
// same values again, a harmless no-op.
func (s *MatchService) disable(ctx context.Context, match *models.TandemMatch) error {
	local, newcomer, err := s.loadPair(ctx, match)
	if err != nil {
		return err
	}
	if newcomer.LocalOrNewcomer == models.KindNewcomer {
		if _, err := s.docs.Update(ctx, userPath(match.Newcomer), map[string]any{
			"localMatch":     nil,
			"matchConfirmed": false,
		}); err != nil {
			return fmt.Errorf("failed to clear newcomer match state: %w", err)
		}
	}
	if local.LocalOrNewcomer == models.KindLocal {
		if _, err := s.docs.Update(ctx, userPath(match.Local), map[string]any{
			"newcomerMatches": repository.ArrayRemove(match.Newcomer),
			"matchConfirmed":  false,
		}); err != nil {
			return fmt.Errorf("failed to clear local match state: %w", err)
		}
	}
	s.notify(ctx, match, "Tandem declined", "Your tandem request was declined")
	return nil
}

// confirm marks the pairing as confirmed on both user records and notifies
// the non-requesting party.
func (s *MatchService) confirm(ctx context.Context, match *models.TandemMatch) error {
	local, newcomer, err := s.loadPair(ctx, match)
	if err != nil {
		return err
	}
	if newcomer.LocalOrNewcomer == models.KindNewcomer {
		if _, err := s.docs.Update(ctx, userPath(match.Newcomer), map[string]any{
			"matchConfirmed": true,
		}); err != nil {
			return fmt.Errorf("failed to confirm newcomer match: %w", err)
		}
	}
	if local.LocalOrNewcomer == models.KindLocal {
		if _, err := s.docs.Update(ctx, userPath(match.Local), map[string]any{
			"matchConfirmed": true,
		}); err != nil {
			return fmt.Errorf("failed to confirm local match: %w", err)
		}
	}
	s.notify(ctx, match, "Tandem confirmed", "Your tandem request was confirmed")
	return nil
}

// ExpireStale queries all enabled matches and disables every one whose
// request is older than the expiry age. Matches are processed concurrently;
// a failure on one never blocks the others. An empty result set is a normal,
// logged no-op.
func (s *MatchService) ExpireStale(ctx context.Context) error {
	docs, err := s.docs.Query(ctx, matchCollection, []repository.Constraint{
		{Field: "enabled", Op: "==", Value: true},
	}, repository.QueryOptions{})
	if err != nil {
		return fmt.Errorf("failed to query enabled matches: %w", err)
	}
	if len(docs) == 0 {
		log.Info().Msg("No enabled matches found")
		return nil
	}
	cutoff := s.now().Add(-s.expiry)
	jobs := make([]tasks.Task, 0, len(docs))
	for _, doc := range docs {
		jobs = append(jobs, func(ctx context.Context) error {
			var match models.TandemMatch
			if err := doc.DataTo(&match); err != nil {
				return err
			}
			if !match.Requested.Before(cutoff) {
				return nil
			}
			if _, err := s.docs.Update(ctx, doc.Path, map[string]any{"enabled": false}); err != nil {
				return fmt.Errorf("failed to expire match %s: %w", doc.ID, err)
			}
			log.Info().Str("match_id", doc.ID).Time("requested", match.Requested).Msg("Expired stale match")
			return nil
		})
	}
	errs := tasks.RunAll(ctx, jobs)
	for _, err := range errs {
		if err != nil {
			log.Error().Err(err).Msg("Match expiry failed")
		}
	}
	return tasks.FirstError(errs)
}

// CleanupDeletedUser disables every match referencing the deleted user and
// nulls the field that pointed at them. The newcomer and requester queries
// are applied independently, each to its own result set.
func (s *MatchService) CleanupDeletedUser(ctx context.Context, userID string) error {
	if err := s.clearMatches(ctx, "newcomer", userID); err != nil {
		return err
	}
	return s.clearMatches(ctx, "requester", userID)
}

func (s *MatchService) clearMatches(ctx context.Context, field, userID string) error {
	docs, err := s.docs.Query(ctx, matchCollection, []repository.Constraint{
		{Field: field, Op: "==", Value: userID},
	}, repository.QueryOptions{})
	if err != nil {
		return fmt.Errorf("failed to query matches by %s: %w", field, err)
	}
	jobs := make([]tasks.Task, 0, len(docs))
	for _, doc := range docs {
		jobs = append(jobs, func(ctx context.Context) error {
			_, err := s.docs.Update(ctx, doc.Path, map[string]any{
				field:     nil,
				"enabled": false,
			})
			return err
		})
	}
	if err := tasks.FirstError(tasks.RunAll(ctx, jobs)); err != nil {
		return fmt.Errorf("failed to clear %s matches: %w", field, err)
	}
	return nil
}

// loadPair reloads both paired user records. A missing record aborts the
// current operation entirely.
func (s *MatchService) loadPair(ctx context.Context, match *models.TandemMatch) (local, newcomer *models.User, err error) {
	localDoc, err := s.docs.Get(ctx, userPath(match.Local))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load local user: %w", err)
	}
	newcomerDoc, err := s.docs.Get(ctx, userPath(match.Newcomer))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load newcomer user: %w", err)
	}
	if localDoc == nil || newcomerDoc == nil {
		return nil, nil, fmt.Errorf("paired user not found")
	}
	local = &models.User{}
	if err := localDoc.DataTo(local); err != nil {
		return nil, nil, err
	}
	newcomer = &models.User{}
	if err := newcomerDoc.DataTo(newcomer); err != nil {
		return nil, nil, err
	}
	return local, newcomer, nil
}

// notify delivers a state-change notification to the non-requesting party.
// Delivery failure is logged and does not fail the transition.
func (s *MatchService) notify(ctx context.Context, match *models.TandemMatch, title, body string) {
	target := match.NotifiedParty()
	err := s.notifier.Notify(ctx, target, title, body, map[string]string{
		"requester": match.Requester,
	})
	if err != nil {
		log.Warn().Err(err).Str("user_id", target).Msg("Match notification failed")
	}
}

func matchPath(id string) string {
	return matchCollection + "/" + id
}

func userPath(id string) string {
	return userCollection + "/" + id
}
