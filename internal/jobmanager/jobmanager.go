// Package jobmanager is the thin coordinator above the State Store: it
// validates job definitions before persisting them and turns manual
// trigger requests into queued runs.
package jobmanager

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"eltorch/internal/apperrors"
	"eltorch/internal/cronexpr"
	"eltorch/internal/store"
)

// Manager validates and persists jobs, and enqueues manual run requests.
type Manager struct {
	store store.StateStore
	log   *slog.Logger
}

// New constructs a Manager over the given State Store.
func New(s store.StateStore, log *slog.Logger) *Manager {
	return &Manager{store: s, log: log}
}

// CreateJob validates input and persists the job and its tasks atomically.
// Validation beyond what the State Store itself enforces (non-empty name,
// non-empty tasks) is cron-schedule syntax and a non-empty extractor_config
// and loader_config on every task, checked here so a malformed job never
// reaches storage.
func (m *Manager) CreateJob(ctx context.Context, input store.NewJobInput) (*store.JobDefinition, []store.TaskDefinition, error) {
	if err := cronexpr.Validate(input.Schedule); err != nil {
		return nil, nil, err
	}
	for i, task := range input.Tasks {
		if len(task.ExtractorConfig) == 0 {
			return nil, nil, apperrors.Validation("tasks", fmt.Sprintf("task at position %d is missing extractor_config", i))
		}
		if len(task.LoaderConfig) == 0 {
			return nil, nil, apperrors.Validation("tasks", fmt.Sprintf("task at position %d is missing loader_config", i))
		}
	}

	job, tasks, err := m.store.CreateJob(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	m.log.Info("job created", "job_id", job.JobID, "job_name", job.JobName, "task_count", len(tasks))
	return job, tasks, nil
}

// GetJob returns a job and its tasks.
func (m *Manager) GetJob(ctx context.Context, jobID uuid.UUID) (*store.JobDefinition, []store.TaskDefinition, error) {
	return m.store.GetJob(ctx, jobID)
}

// ListJobs returns every job definition.
func (m *Manager) ListJobs(ctx context.Context) ([]store.JobDefinition, error) {
	return m.store.ListJobs(ctx)
}

// DeleteJob removes a job; tasks and runs for it cascade.
func (m *Manager) DeleteJob(ctx context.Context, jobID uuid.UUID) error {
	return m.store.DeleteJob(ctx, jobID)
}

// Trigger creates a manually-triggered run for jobID. Creating the run is
// durable and synchronous; execution happens asynchronously via the Worker
// Manager, so a caller observing the returned run should expect status
// queued, not a finished outcome.
func (m *Manager) Trigger(ctx context.Context, jobID uuid.UUID) (*store.JobRun, error) {
	run, err := m.store.CreateRun(ctx, jobID, store.TriggeredByManual)
	if err != nil {
		return nil, err
	}
	m.log.Info("run triggered", "job_id", jobID, "run_id", run.RunID, "triggered_by", run.TriggeredBy)
	return run, nil
}

// GetRun returns a run by id.
func (m *Manager) GetRun(ctx context.Context, runID uuid.UUID) (*store.JobRun, error) {
	return m.store.GetRun(ctx, runID)
}

// ListRuns returns every run, most recent first.
func (m *Manager) ListRuns(ctx context.Context) ([]store.JobRun, error) {
	return m.store.ListRuns(ctx)
}
