// Package jobs runs scheduled maintenance for potluck events.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/m3rciful/potluckbot/core/logger"
)

// DefaultSchedule runs the sweep at the top of every hour.
const DefaultSchedule = "0 * * * *"

// DefaultGrace is how long after its date an event stays active.
const DefaultGrace = 24 * time.Hour

// EventCompleter marks stale events as completed.
type EventCompleter interface {
	CompletePastEvents(ctx context.Context, cutoff time.Time) (int64, error)
}

// SweepOptions configures a Sweeper.
type SweepOptions struct {
	// Schedule is a five-field cron expression or a descriptor such as
	// "@hourly". Empty means DefaultSchedule.
	Schedule string
	// Grace is subtracted from now to form the cutoff. Zero means
	// DefaultGrace.
	Grace time.Duration
	// Location is the zone the schedule is read in unless the expression
	// carries its own CRON_TZ prefix. Nil means UTC.
	Location *time.Location
	Now      func() time.Time
}

// Sweeper completes events whose date lies more than Grace in the past.
type Sweeper struct {
	events   EventCompleter
	spec     string
	schedule cron.Schedule
	grace    time.Duration
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewSweeper validates the schedule and returns an idle sweeper.
func NewSweeper(events EventCompleter, opts SweepOptions) (*Sweeper, error) {
	spec := opts.Schedule
	if spec == "" {
		spec = DefaultSchedule
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	zoned := spec
	if !strings.HasPrefix(spec, "CRON_TZ=") && !strings.HasPrefix(spec, "TZ=") {
		zoned = "CRON_TZ=" + loc.String() + " " + spec
	}
	schedule, err := cron.ParseStandard(zoned)
	if err != nil {
		return nil, fmt.Errorf("jobs: invalid sweep schedule %q: %w", spec, err)
	}
	grace := opts.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Sweeper{events: events, spec: spec, schedule: schedule, grace: grace, now: now}, nil
}

// Next reports when the sweep fires after t.
func (s *Sweeper) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	cutoff := s.now().Add(-s.grace)
	n, err := s.events.CompletePastEvents(ctx, cutoff)
	attrs := []any{
		slog.String("event", "sweep.run"),
		slog.String("status", logger.Status(err)),
		slog.Int64("affected", n),
		slog.Time("cutoff", cutoff.UTC()),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		logger.Jobs.Error("sweep failed", append(attrs, logger.Err(err))...)
		return 0, fmt.Errorf("jobs: sweep: %w", err)
	}
	if n > 0 {
		logger.Jobs.Info("sweep completed events", attrs...)
	} else {
		logger.Jobs.Debug("sweep found nothing", attrs...)
	}
	return n, nil
}

// Start schedules the sweep. Runs never overlap; a run still in progress
// causes the next tick to be skipped. Calling Start twice is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}
	log := cronLogger{l: logger.Jobs}
	c := cron.New(
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		_, _ = s.RunOnce(ctx)
	}))
	c.Start()
	s.cron = c
	logger.Jobs.Info("sweep scheduled",
		slog.String("event", "sweep.start"),
		slog.String("schedule", s.spec),
		slog.Duration("grace", s.grace),
		slog.Time("next", s.schedule.Next(s.now()).UTC()),
	)
}

// Stop unschedules the sweep and waits for a running sweep to return or ctx
// to expire.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes the scheduler's own messages into the jobs logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, logger.Err(err))...)
}
