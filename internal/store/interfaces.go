package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// DBTransaction is implemented by both *sql.DB and *sql.Tx, letting
// repository methods accept either a pool or an active transaction.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx extends DBTransaction with the commit/rollback lifecycle.
type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// StateStore is the durable record of job definitions, tasks, and runs —
// the single source of truth, per the backend-agnostic contract shared by
// the postgres and sqlite implementations.
type StateStore interface {
	// CreateJob inserts a job and all of its tasks atomically. Returns
	// apperrors.ValidationError on empty name or an empty task list; the
	// schedule is stored as given, without a syntax check.
	CreateJob(ctx context.Context, input NewJobInput) (*JobDefinition, []TaskDefinition, error)

	// GetJob returns a job and its tasks ordered by task_order ascending.
	// Returns apperrors.NotFoundError if job_id does not exist.
	GetJob(ctx context.Context, jobID uuid.UUID) (*JobDefinition, []TaskDefinition, error)

	// ListJobs returns every job definition.
	ListJobs(ctx context.Context) ([]JobDefinition, error)

	// ListActiveJobs returns job definitions with is_active = true.
	ListActiveJobs(ctx context.Context) ([]JobDefinition, error)

	// DeleteJob removes a job; tasks and runs cascade.
	DeleteJob(ctx context.Context, jobID uuid.UUID) error

	// CreateRun inserts a new JobRun in the queued state. Returns
	// apperrors.NotFoundError if job_id does not exist.
	CreateRun(ctx context.Context, jobID uuid.UUID, triggeredBy TriggeredBy) (*JobRun, error)

	// ClaimNextQueuedRun atomically finds the oldest queued run, transitions
	// it to running with started_at = now(), and returns it. Returns
	// (nil, nil) if the queue is empty. Implementations must guarantee that
	// two concurrent callers never claim the same run.
	ClaimNextQueuedRun(ctx context.Context) (*JobRun, error)

	// FinalizeRun transitions a running run to success or failed, setting
	// finished_at = now(). errMsg is written as given for either outcome;
	// a non-nil errMsg is not cleared when outcome is success.
	// Returns apperrors.StorageError if the run is not currently running.
	FinalizeRun(ctx context.Context, runID uuid.UUID, outcome RunStatus, errMsg *string) error

	// GetRun returns a run by id. Returns apperrors.NotFoundError if absent.
	GetRun(ctx context.Context, runID uuid.UUID) (*JobRun, error)

	// ListRuns returns every run, most recent first.
	ListRuns(ctx context.Context) ([]JobRun, error)

	// GetTasksForJob returns a job's tasks ordered by task_order ascending.
	GetTasksForJob(ctx context.Context, jobID uuid.UUID) ([]TaskDefinition, error)

	// RecoverOrphanedRuns transitions every run still in running (left over
	// from a prior process) to failed with an orphan error message. Called
	// once at startup before the Scheduler begins ticking.
	RecoverOrphanedRuns(ctx context.Context) (int64, error)

	// CountQueuedRuns reports the current queue depth, used by the queued
	// depth observability gauge.
	CountQueuedRuns(ctx context.Context) (int64, error)

	// Close releases the underlying connection pool.
	Close() error
}

// OrphanMessage is the fixed error_message stamped on runs recovered by
// RecoverOrphanedRuns, per the orphan-recovery policy.
const OrphanMessage = "orphaned: orchestrator restarted"
