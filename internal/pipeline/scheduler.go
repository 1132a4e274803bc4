package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// maxAttempts bounds retries of one day within a cycle; the next cycle
// tries again.
const maxAttempts = 5

// Runner executes a single pipeline run.
type Runner interface {
	Run(ctx context.Context, window domain.DateRange) (Result, error)
}

// Scheduler periodically refreshes the trailing days, one run per day,
// oldest first so the watermark only ever moves forward.
type Scheduler struct {
	runner       Runner
	interval     time.Duration
	lookbackDays int
	clock        clockwork.Clock
	logger       *slog.Logger
}

// NewScheduler creates a scheduler that runs every interval over
// [today-lookbackDays, today+1).
func NewScheduler(runner Runner, interval time.Duration, lookbackDays int, clock clockwork.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:       runner,
		interval:     interval,
		lookbackDays: lookbackDays,
		clock:        clock,
		logger:       logger,
	}
}

// Window returns the range refreshed by a cycle starting at now.
func (s *Scheduler) Window(now time.Time) domain.DateRange {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return domain.DateRange{
		Start: today.AddDate(0, 0, -s.lookbackDays),
		End:   today.AddDate(0, 0, 1),
	}
}

// Run starts a cycle immediately and then once per interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "lookback_days", s.lookbackDays)

	for {
		s.runCycle(ctx)
		if !sleepWithContext(ctx, s.clock, s.interval) {
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	window := s.Window(s.clock.Now())
	for _, day := range window.Days() {
		if !s.runWithRetry(ctx, day) {
			return
		}
	}
}

// runWithRetry runs one day, backing off between failed attempts. It returns
// false if ctx ended.
func (s *Scheduler) runWithRetry(ctx context.Context, day domain.DateRange) bool {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		_, err := s.runner.Run(ctx, day)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if attempt >= maxAttempts {
			s.logger.Error("giving up on window until next cycle",
				"window", day.String(), "attempts", attempt, "error", err)
			return true
		}
		s.logger.Warn("scheduled run failed, retrying",
			"window", day.String(), "attempt", attempt, "backoff", backoff, "error", err)
		if !sleepWithContext(ctx, s.clock, backoff) {
			return false
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}
