// Package worker contains the Worker Manager dispatch loop and the Task
// Runner that executes one JobRun's ordered extract/load steps.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"eltorch/internal/observability"
	"eltorch/internal/plugin"
	"eltorch/internal/store"
)

// ManagerConfig holds the tunables for a Manager's dispatch loop.
type ManagerConfig struct {
	Concurrency   int
	PollInterval  time.Duration
	MaxBackoff    time.Duration
	ShutdownGrace time.Duration
}

func (c *ManagerConfig) setDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 30 * time.Second
	}
}

// Manager is a bounded pool of goroutines that repeatedly claim queued runs
// and hand each to a Runner. The atomic claim in the State Store is the sole
// guarantor that no two slots (in this process or another) execute the same
// run; the manager itself does no additional locking.
type Manager struct {
	store   store.StateStore
	runner  *Runner
	config  ManagerConfig
	log     *slog.Logger
	metrics *observability.RunMetrics

	done chan struct{}
}

// NewManager constructs a Manager. metrics may be nil, in which case run
// counters are skipped.
func NewManager(s store.StateStore, runner *Runner, config ManagerConfig, log *slog.Logger, metrics *observability.RunMetrics) *Manager {
	config.setDefaults()
	return &Manager{store: s, runner: runner, config: config, log: log, metrics: metrics, done: make(chan struct{})}
}

// Done returns a channel that is closed once Run has stopped claiming new
// work and has either observed all in-flight runs finish or given up on
// them at the end of ShutdownGrace. Callers that need to close resources
// the Runner depends on (the State Store, most importantly) must wait on
// this before doing so.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Run starts the claim loop. It blocks until ctx is cancelled, at which
// point it stops claiming new work and waits up to ShutdownGrace for
// in-flight runs to finish before returning. Runs still in flight past the
// grace period are left running in storage; the Scheduler reclassifies them
// as orphans on next startup.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	m.log.Info("worker manager starting", "concurrency", m.config.Concurrency)

	sem := make(chan struct{}, m.config.Concurrency)
	var wg sync.WaitGroup

	pollNow := make(chan struct{}, 1)
	currentBackoff := m.config.PollInterval

	triggerPoll := func() {
		select {
		case pollNow <- struct{}{}:
		default:
		}
	}
	triggerPoll()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("worker manager shutting down, awaiting in-flight runs")
			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(m.config.ShutdownGrace):
				m.log.Warn("shutdown grace period elapsed with runs still in flight")
			}
			return

		case <-time.After(currentBackoff):
			triggerPoll()

		case <-pollNow:
			if len(sem) >= m.config.Concurrency {
				continue
			}

			run, err := m.store.ClaimNextQueuedRun(ctx)
			if err != nil {
				m.log.Error("claim failed", "error", err)
				continue
			}
			if run == nil {
				currentBackoff *= 2
				if currentBackoff > m.config.MaxBackoff {
					currentBackoff = m.config.MaxBackoff
				}
				continue
			}

			currentBackoff = m.config.PollInterval
			if m.metrics != nil {
				m.metrics.RunsClaimed.Add(ctx, 1)
			}

			sem <- struct{}{}
			wg.Add(1)
			go func(run *store.JobRun) {
				defer wg.Done()
				defer func() {
					<-sem
					triggerPoll()
				}()
				m.execute(ctx, run)
			}(run)

			triggerPoll()
		}
	}
}

func (m *Manager) execute(ctx context.Context, run *store.JobRun) {
	log := m.log.With("run_id", run.RunID, "job_id", run.JobID)
	log.Info("run claimed")

	start := time.Now()
	runErr := m.runner.Execute(ctx, run)
	duration := time.Since(start).Seconds()

	// a run interrupted by shutdown is not finalized: it stays running and
	// is reclassified as an orphan on next startup.
	var cancelled *plugin.CancelledError
	if errors.As(runErr, &cancelled) || errors.Is(runErr, context.Canceled) {
		log.Warn("run interrupted by shutdown, left running", "error", runErr)
		return
	}

	outcome := store.RunStatusSuccess
	var errMsg *string
	if runErr != nil {
		outcome = store.RunStatusFailed
		msg := runErr.Error()
		errMsg = &msg
		log.Error("run failed", "error", runErr)
	} else {
		log.Info("run succeeded")
	}

	// finalize with a fresh context: a run that finishes after ctx was
	// cancelled by a shutdown signal is still marked terminal.
	finalizeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.store.FinalizeRun(finalizeCtx, run.RunID, outcome, errMsg); err != nil {
		log.Error("finalize failed", "error", err)
	}

	if m.metrics != nil {
		m.metrics.RunDuration.Record(ctx, duration)
		if outcome == store.RunStatusSuccess {
			m.metrics.RunsSucceeded.Add(ctx, 1)
		} else {
			m.metrics.RunsFailed.Add(ctx, 1)
		}
	}
}
