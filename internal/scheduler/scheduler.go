// Package scheduler runs periodic reconciliation jobs on a fixed interval.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Job is one sweep invocation. A returned error is logged, never fatal.
type Job func(ctx context.Context) error

// Scheduler invokes a job on a fixed interval until its context is canceled.
type Scheduler struct {
	name     string
	interval time.Duration
	job      Job
}

// New creates a scheduler for the given job.
func New(name string, interval time.Duration, job Job) *Scheduler {
	return &Scheduler{name: name, interval: interval, job: job}
}

// Start launches the ticker goroutine. It returns immediately; the loop
// stops when ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.Info().Str("job", s.name).Dur("interval", s.interval).Msg("Scheduler started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Str("job", s.name).Msg("Scheduler stopped")
				return
			case <-ticker.C:
				if err := s.job(ctx); err != nil {
					log.Error().Err(err).Str("job", s.name).Msg("Scheduled job failed")
				}
			}
		}
	}()
}
