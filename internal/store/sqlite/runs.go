package sqlite

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
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM job_definitions WHERE job_id = ?)", jobID.String()).Scan(&exists)
	if err != nil {
		return nil, apperrors.Storage("sqlite.CreateRun.checkJob", err)
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO job_runs (run_id, job_id, status, triggered_by, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.RunID.String(), run.JobID.String(), string(run.Status), string(run.TriggeredBy), run.CreatedAt)
	if err != nil {
		return nil, apperrors.Storage("sqlite.CreateRun.insert", err)
	}

	return &run, nil
}

// ClaimNextQueuedRun atomically claims the oldest queued run. database/sql's
// Tx always issues a plain "BEGIN", so the immediate write lock is taken by
// hand on a dedicated connection: BEGIN IMMEDIATE upgrades to a reserved
// lock before the SELECT, which is what makes the subsequent guarded UPDATE
// (WHERE run_id = ? AND status = 'queued') race-free against a concurrent
// claimer rather than merely "probably fine."
func (s *Store) ClaimNextQueuedRun(ctx context.Context) (*store.JobRun, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, apperrors.Storage("sqlite.ClaimNextQueuedRun.conn", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return nil, apperrors.Storage("sqlite.ClaimNextQueuedRun.beginImmediate", err)
	}
	committed := false
	defer func() {
		if !committed {
			conn.ExecContext(ctx, "ROLLBACK")
		}
	}()

	var runIDStr string
	err = conn.QueryRowContext(ctx, `
		SELECT run_id FROM job_runs WHERE status = 'queued' ORDER BY created_at ASC LIMIT 1
	`).Scan(&runIDStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage("sqlite.ClaimNextQueuedRun.select", err)
	}

	now := time.Now().UTC()
	res, err := conn.ExecContext(ctx, `
		UPDATE job_runs SET status = 'running', started_at = ? WHERE run_id = ? AND status = 'queued'
	`, now, runIDStr)
	if err != nil {
		return nil, apperrors.Storage("sqlite.ClaimNextQueuedRun.update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, apperrors.Storage("sqlite.ClaimNextQueuedRun.rowsAffected", err)
	}
	if n != 1 {
		return nil, nil
	}

	var run store.JobRun
	var jobIDStr, status, triggeredBy string
	err = conn.QueryRowContext(ctx, `
		SELECT run_id, job_id, status, triggered_by, started_at, finished_at, error_message, created_at
		FROM job_runs WHERE run_id = ?
	`, runIDStr).Scan(&runIDStr, &jobIDStr, &status, &triggeredBy, &run.StartedAt, &run.FinishedAt, &run.ErrorMessage, &run.CreatedAt)
	if err != nil {
		return nil, apperrors.Storage("sqlite.ClaimNextQueuedRun.reload", err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return nil, apperrors.Storage("sqlite.ClaimNextQueuedRun.commit", err)
	}
	committed = true

	run.RunID, err = uuid.Parse(runIDStr)
	if err != nil {
		return nil, apperrors.Storage("sqlite.ClaimNextQueuedRun.parseRunID", err)
	}
	run.JobID, err = uuid.Parse(jobIDStr)
	if err != nil {
		return nil, apperrors.Storage("sqlite.ClaimNextQueuedRun.parseJobID", err)
	}
	run.Status = store.RunStatus(status)
	run.TriggeredBy = store.TriggeredBy(triggeredBy)

	return &run, nil
}

// FinalizeRun transitions a running run to its terminal state.
func (s *Store) FinalizeRun(ctx context.Context, runID uuid.UUID, outcome store.RunStatus, errMsg *string) error {
	if outcome != store.RunStatusSuccess && outcome != store.RunStatusFailed {
		return apperrors.Validation("outcome", "outcome must be success or failed")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE job_runs SET status = ?, finished_at = ?, error_message = ? WHERE run_id = ? AND status = 'running'
	`, string(outcome), time.Now().UTC(), errMsg, runID.String())
	if err != nil {
		return apperrors.Storage("sqlite.FinalizeRun", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Storage("sqlite.FinalizeRun.rowsAffected", err)
	}
	if n == 0 {
		return apperrors.Storage("sqlite.FinalizeRun", errors.New("run is not currently running"))
	}
	return nil
}

// GetRun returns a run by id.
func (s *Store) GetRun(ctx context.Context, runID uuid.UUID) (*store.JobRun, error) {
	var run store.JobRun
	var runIDStr, jobIDStr, status, triggeredBy string
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, job_id, status, triggered_by, started_at, finished_at, error_message, created_at
		FROM job_runs WHERE run_id = ?
	`, runID.String()).Scan(&runIDStr, &jobIDStr, &status, &triggeredBy, &run.StartedAt, &run.FinishedAt, &run.ErrorMessage, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("run", runID.String())
	}
	if err != nil {
		return nil, apperrors.Storage("sqlite.GetRun", err)
	}
	run.RunID, _ = uuid.Parse(runIDStr)
	run.JobID, _ = uuid.Parse(jobIDStr)
	run.Status = store.RunStatus(status)
	run.TriggeredBy = store.TriggeredBy(triggeredBy)
	return &run, nil
}

// ListRuns returns every run, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]store.JobRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, job_id, status, triggered_by, started_at, finished_at, error_message, created_at
		FROM job_runs ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, apperrors.Storage("sqlite.ListRuns", err)
	}
	defer rows.Close()

	var runs []store.JobRun
	for rows.Next() {
		var r store.JobRun
		var runIDStr, jobIDStr, status, triggeredBy string
		if err := rows.Scan(&runIDStr, &jobIDStr, &status, &triggeredBy, &r.StartedAt, &r.FinishedAt, &r.ErrorMessage, &r.CreatedAt); err != nil {
			return nil, apperrors.Storage("sqlite.ListRuns.scan", err)
		}
		r.RunID, _ = uuid.Parse(runIDStr)
		r.JobID, _ = uuid.Parse(jobIDStr)
		r.Status = store.RunStatus(status)
		r.TriggeredBy = store.TriggeredBy(triggeredBy)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("sqlite.ListRuns.rows", err)
	}
	return runs, nil
}

// RecoverOrphanedRuns transitions every running run to failed, called once
// at startup before the Scheduler begins ticking.
func (s *Store) RecoverOrphanedRuns(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_runs SET status = 'failed', finished_at = ?, error_message = ? WHERE status = 'running'
	`, time.Now().UTC(), store.OrphanMessage)
	if err != nil {
		return 0, apperrors.Storage("sqlite.RecoverOrphanedRuns", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Storage("sqlite.RecoverOrphanedRuns.rowsAffected", err)
	}
	return n, nil
}

// CountQueuedRuns reports the current queue depth.
func (s *Store) CountQueuedRuns(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM job_runs WHERE status = 'queued'").Scan(&n)
	if err != nil {
		return 0, apperrors.Storage("sqlite.CountQueuedRuns", err)
	}
	return n, nil
}
