package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"eltorch/internal/apperrors"
	"eltorch/internal/store"
)

// CreateRun inserts a new JobRun in the queued state.
func (s *Store) CreateRun(ctx context.Context, jobID uuid.UUID, triggeredBy store.TriggeredBy) (*store.JobRun, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM job_definitions WHERE job_id = $1)", jobID).Scan(&exists); err != nil {
		return nil, apperrors.Storage("postgres.CreateRun.checkJob", err)
	}
	if !exists {
		return nil, apperrors.NotFound("job", jobID.String())
	}

	run := store.JobRun{
		RunID:       uuid.New(),
		JobID:       jobID,
		Status:      store.RunStatusQueued,
		TriggeredBy: triggeredBy,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (run_id, job_id, status, triggered_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, run.RunID, run.JobID, run.Status, run.TriggeredBy, run.CreatedAt)
	if err != nil {
		return nil, apperrors.Storage("postgres.CreateRun.insert", err)
	}

	return &run, nil
}

// ClaimNextQueuedRun atomically claims the oldest queued run via a single
// UPDATE ... RETURNING, which Postgres evaluates under a row lock so two
// concurrent callers cannot claim the same run.
func (s *Store) ClaimNextQueuedRun(ctx context.Context) (*store.JobRun, error) {
	var run store.JobRun
	err := s.db.QueryRowContext(ctx, `
		UPDATE job_runs
		SET status = 'running', started_at = now()
		WHERE run_id = (
			SELECT run_id FROM job_runs
			WHERE status = 'queued'
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING run_id, job_id, status, triggered_by, started_at, finished_at, error_message, created_at
	`).Scan(&run.RunID, &run.JobID, &run.Status, &run.TriggeredBy, &run.StartedAt, &run.FinishedAt, &run.ErrorMessage, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage("postgres.ClaimNextQueuedRun", err)
	}
	return &run, nil
}

// FinalizeRun transitions a running run to its terminal state.
func (s *Store) FinalizeRun(ctx context.Context, runID uuid.UUID, outcome store.RunStatus, errMsg *string) error {
	if outcome != store.RunStatusSuccess && outcome != store.RunStatusFailed {
		return apperrors.Validation("outcome", "outcome must be success or failed")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE job_runs
		SET status = $1, finished_at = now(), error_message = $2
		WHERE run_id = $3 AND status = 'running'
	`, outcome, errMsg, runID)
	if err != nil {
		return apperrors.Storage("postgres.FinalizeRun", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Storage("postgres.FinalizeRun.rowsAffected", err)
	}
	if n == 0 {
		return apperrors.Storage("postgres.FinalizeRun", errors.New("run is not currently running"))
	}
	return nil
}

// GetRun returns a run by id.
func (s *Store) GetRun(ctx context.Context, runID uuid.UUID) (*store.JobRun, error) {
	var run store.JobRun
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, job_id, status, triggered_by, started_at, finished_at, error_message, created_at
		FROM job_runs WHERE run_id = $1
	`, runID).Scan(&run.RunID, &run.JobID, &run.Status, &run.TriggeredBy, &run.StartedAt, &run.FinishedAt, &run.ErrorMessage, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("run", runID.String())
	}
	if err != nil {
		return nil, apperrors.Storage("postgres.GetRun", err)
	}
	return &run, nil
}

// ListRuns returns every run, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]store.JobRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, job_id, status, triggered_by, started_at, finished_at, error_message, created_at
		FROM job_runs ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, apperrors.Storage("postgres.ListRuns", err)
	}
	defer rows.Close()

	var runs []store.JobRun
	for rows.Next() {
		var r store.JobRun
		if err := rows.Scan(&r.RunID, &r.JobID, &r.Status, &r.TriggeredBy, &r.StartedAt, &r.FinishedAt, &r.ErrorMessage, &r.CreatedAt); err != nil {
			return nil, apperrors.Storage("postgres.ListRuns.scan", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("postgres.ListRuns.rows", err)
	}
	return runs, nil
}

// RecoverOrphanedRuns transitions every running run to failed, called once
// at startup before the Scheduler begins ticking.
func (s *Store) RecoverOrphanedRuns(ctx context.Context) (int64, error) {
	msg := store.OrphanMessage
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_runs
		SET status = 'failed', finished_at = now(), error_message = $1
		WHERE status = 'running'
	`, msg)
	if err != nil {
		return 0, apperrors.Storage("postgres.RecoverOrphanedRuns", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Storage("postgres.RecoverOrphanedRuns.rowsAffected", err)
	}
	return n, nil
}

// CountQueuedRuns reports the current queue depth.
func (s *Store) CountQueuedRuns(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM job_runs WHERE status = 'queued'").Scan(&n)
	if err != nil {
		return 0, apperrors.Storage("postgres.CountQueuedRuns", err)
	}
	return n, nil
}
