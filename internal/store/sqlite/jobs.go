package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"eltorch/internal/apperrors"
	"eltorch/internal/store"
)

// CreateJob inserts a job and its tasks in one transaction.
func (s *Store) CreateJob(ctx context.Context, input store.NewJobInput) (*store.JobDefinition, []store.TaskDefinition, error) {
	if strings.TrimSpace(input.JobName) == "" {
		return nil, nil, apperrors.Validation("job_name", "job_name must not be empty")
	}
	if len(input.Tasks) == 0 {
		return nil, nil, apperrors.Validation("tasks", "job must have at least one task")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, apperrors.Storage("sqlite.CreateJob.begin", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	job := store.JobDefinition{
		JobID:       uuid.New(),
		JobName:     input.JobName,
		Description: input.Description,
		Schedule:    input.Schedule,
		IsActive:    input.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO job_definitions (job_id, job_name, description, schedule, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, job.JobID.String(), job.JobName, job.Description, job.Schedule, job.IsActive, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return nil, nil, apperrors.Storage("sqlite.CreateJob.insertJob", err)
	}

	tasks := make([]store.TaskDefinition, 0, len(input.Tasks))
	for i, t := range input.Tasks {
		task := store.TaskDefinition{
			TaskID:          uuid.New(),
			JobID:           job.JobID,
			TaskOrder:       i,
			ExtractorConfig: t.ExtractorConfig,
			LoaderConfig:    t.LoaderConfig,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO task_definitions (task_id, job_id, task_order, extractor_config, loader_config)
			VALUES (?, ?, ?, ?, ?)
		`, task.TaskID.String(), task.JobID.String(), task.TaskOrder, string(task.ExtractorConfig), string(task.LoaderConfig))
		if err != nil {
			return nil, nil, apperrors.Storage("sqlite.CreateJob.insertTask", err)
		}
		tasks = append(tasks, task)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, apperrors.Storage("sqlite.CreateJob.commit", err)
	}

	return &job, tasks, nil
}

// GetJob returns a job and its tasks ordered by task_order ascending.
func (s *Store) GetJob(ctx context.Context, jobID uuid.UUID) (*store.JobDefinition, []store.TaskDefinition, error) {
	job, err := s.scanJob(ctx, s.db.QueryRowContext(ctx, `
		SELECT job_id, job_name, description, schedule, is_active, created_at, updated_at
		FROM job_definitions WHERE job_id = ?
	`, jobID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperrors.NotFound("job", jobID.String())
	}
	if err != nil {
		return nil, nil, apperrors.Storage("sqlite.GetJob", err)
	}

	tasks, err := s.GetTasksForJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	return job, tasks, nil
}

func (s *Store) scanJob(ctx context.Context, row *sql.Row) (*store.JobDefinition, error) {
	var j store.JobDefinition
	var jobIDStr string
	if err := row.Scan(&jobIDStr, &j.JobName, &j.Description, &j.Schedule, &j.IsActive, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(jobIDStr)
	if err != nil {
		return nil, err
	}
	j.JobID = id
	return &j, nil
}

// GetTasksForJob returns a job's tasks ordered by task_order ascending.
func (s *Store) GetTasksForJob(ctx context.Context, jobID uuid.UUID) ([]store.TaskDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, job_id, task_order, extractor_config, loader_config
		FROM task_definitions WHERE job_id = ? ORDER BY task_order ASC
	`, jobID.String())
	if err != nil {
		return nil, apperrors.Storage("sqlite.GetTasksForJob", err)
	}
	defer rows.Close()

	var tasks []store.TaskDefinition
	for rows.Next() {
		var t store.TaskDefinition
		var taskIDStr, taskJobIDStr string
		var extractor, loader string
		if err := rows.Scan(&taskIDStr, &taskJobIDStr, &t.TaskOrder, &extractor, &loader); err != nil {
			return nil, apperrors.Storage("sqlite.GetTasksForJob.scan", err)
		}
		t.TaskID, err = uuid.Parse(taskIDStr)
		if err != nil {
			return nil, apperrors.Storage("sqlite.GetTasksForJob.parseTaskID", err)
		}
		t.JobID, err = uuid.Parse(taskJobIDStr)
		if err != nil {
			return nil, apperrors.Storage("sqlite.GetTasksForJob.parseJobID", err)
		}
		t.ExtractorConfig = json.RawMessage(extractor)
		t.LoaderConfig = json.RawMessage(loader)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("sqlite.GetTasksForJob.rows", err)
	}
	return tasks, nil
}

// ListJobs returns every job definition.
func (s *Store) ListJobs(ctx context.Context) ([]store.JobDefinition, error) {
	return s.listJobs(ctx, "SELECT job_id, job_name, description, schedule, is_active, created_at, updated_at FROM job_definitions ORDER BY created_at ASC")
}

// ListActiveJobs returns job definitions with is_active = true.
func (s *Store) ListActiveJobs(ctx context.Context) ([]store.JobDefinition, error) {
	return s.listJobs(ctx, "SELECT job_id, job_name, description, schedule, is_active, created_at, updated_at FROM job_definitions WHERE is_active = 1 ORDER BY created_at ASC")
}

func (s *Store) listJobs(ctx context.Context, query string) ([]store.JobDefinition, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Storage("sqlite.listJobs", err)
	}
	defer rows.Close()

	var jobs []store.JobDefinition
	for rows.Next() {
		var j store.JobDefinition
		var jobIDStr string
		if err := rows.Scan(&jobIDStr, &j.JobName, &j.Description, &j.Schedule, &j.IsActive, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, apperrors.Storage("sqlite.listJobs.scan", err)
		}
		j.JobID, err = uuid.Parse(jobIDStr)
		if err != nil {
			return nil, apperrors.Storage("sqlite.listJobs.parseID", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("sqlite.listJobs.rows", err)
	}
	return jobs, nil
}

// DeleteJob removes a job; tasks and runs cascade via FK constraints.
func (s *Store) DeleteJob(ctx context.Context, jobID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM job_definitions WHERE job_id = ?", jobID.String())
	if err != nil {
		return apperrors.Storage("sqlite.DeleteJob", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Storage("sqlite.DeleteJob.rowsAffected", err)
	}
	if n == 0 {
		return apperrors.NotFound("job", jobID.String())
	}
	return nil
}
