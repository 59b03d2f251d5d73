// Package scheduler runs the periodic control loop that turns due cron
// schedules into queued job runs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"eltorch/internal/cronexpr"
	"eltorch/internal/store"
)

// Scheduler is a single-instance periodic control loop. It must not be run
// by more than one process against the same State Store (single-writer
// assumption).
type Scheduler struct {
	store        store.StateStore
	tickInterval time.Duration
	log          *slog.Logger

	lastTick time.Time
}

// New constructs a Scheduler. tickInterval is how often due jobs are
// evaluated; the default per spec is 5 seconds.
func New(s store.StateStore, tickInterval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{store: s, tickInterval: tickInterval, log: log}
}

// RecoverOrphans transitions every run left in running (from a prior
// process) to failed. Must be called once, before Run, so that no
// currently-live run is mistaken for an orphan.
func (s *Scheduler) RecoverOrphans(ctx context.Context) error {
	n, err := s.store.RecoverOrphanedRuns(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Warn("recovered orphaned runs", "count", n)
	}
	return nil
}

// Run blocks, ticking every tickInterval, until ctx is cancelled.
// T_last_tick is initialized to the current wall-clock time when Run starts
// rather than backfilled from storage: schedules that would have fired
// while the process was down are intentionally not caught up. Manual
// triggers are the operator's recovery mechanism for that gap.
func (s *Scheduler) Run(ctx context.Context) {
	s.lastTick = time.Now()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick evaluates every active job exactly once, enqueuing at most one run
// per job even if its schedule fired more than once within the window.
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	since := s.lastTick

	jobs, err := s.store.ListActiveJobs(ctx)
	if err != nil {
		s.log.Error("scheduler tick: list active jobs failed", "error", err)
		s.lastTick = now
		return
	}

	for _, job := range jobs {
		if job.Schedule == cronexpr.Manual {
			continue
		}

		sched, err := cronexpr.Parse(job.Schedule)
		if err != nil {
			s.log.Error("scheduler tick: malformed schedule on active job", "job_id", job.JobID, "schedule", job.Schedule, "error", err)
			continue
		}

		if !sched.DueSince(since, now) {
			continue
		}

		if _, err := s.store.CreateRun(ctx, job.JobID, store.TriggeredByScheduled); err != nil {
			s.log.Error("scheduler tick: create run failed", "job_id", job.JobID, "error", err)
			continue
		}
		s.log.Info("scheduled run enqueued", "job_id", job.JobID, "schedule", job.Schedule)
	}

	s.lastTick = now
}
