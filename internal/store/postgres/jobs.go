package postgres

import (
	"context"
	"database/sql"
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
		return nil, nil, apperrors.Storage("postgres.CreateJob.begin", err)
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
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, job.JobID, job.JobName, job.Description, job.Schedule, job.IsActive, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return nil, nil, apperrors.Storage("postgres.CreateJob.insertJob", err)
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
			VALUES ($1, $2, $3, $4, $5)
		`, task.TaskID, task.JobID, task.TaskOrder, []byte(task.ExtractorConfig), []byte(task.LoaderConfig))
		if err != nil {
			return nil, nil, apperrors.Storage("postgres.CreateJob.insertTask", err)
		}
		tasks = append(tasks, task)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, apperrors.Storage("postgres.CreateJob.commit", err)
	}

	return &job, tasks, nil
}

// GetJob returns a job and its tasks ordered by task_order ascending.
func (s *Store) GetJob(ctx context.Context, jobID uuid.UUID) (*store.JobDefinition, []store.TaskDefinition, error) {
	var job store.JobDefinition
	err := s.db.QueryRowContext(ctx, `
		SELECT job_id, job_name, description, schedule, is_active, created_at, updated_at
		FROM job_definitions WHERE job_id = $1
	`, jobID).Scan(&job.JobID, &job.JobName, &job.Description, &job.Schedule, &job.IsActive, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperrors.NotFound("job", jobID.String())
	}
	if err != nil {
		return nil, nil, apperrors.Storage("postgres.GetJob", err)
	}

	tasks, err := s.GetTasksForJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}

	return &job, tasks, nil
}

// GetTasksForJob returns a job's tasks ordered by task_order ascending.
func (s *Store) GetTasksForJob(ctx context.Context, jobID uuid.UUID) ([]store.TaskDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, job_id, task_order, extractor_config, loader_config
		FROM task_definitions WHERE job_id = $1 ORDER BY task_order ASC
	`, jobID)
	if err != nil {
		return nil, apperrors.Storage("postgres.GetTasksForJob", err)
	}
	defer rows.Close()

	var tasks []store.TaskDefinition
	for rows.Next() {
		var t store.TaskDefinition
		if err := rows.Scan(&t.TaskID, &t.JobID, &t.TaskOrder, &t.ExtractorConfig, &t.LoaderConfig); err != nil {
			return nil, apperrors.Storage("postgres.GetTasksForJob.scan", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("postgres.GetTasksForJob.rows", err)
	}
	return tasks, nil
}

// ListJobs returns every job definition.
func (s *Store) ListJobs(ctx context.Context) ([]store.JobDefinition, error) {
	return s.listJobs(ctx, "SELECT job_id, job_name, description, schedule, is_active, created_at, updated_at FROM job_definitions ORDER BY created_at ASC")
}

// ListActiveJobs returns job definitions with is_active = true.
func (s *Store) ListActiveJobs(ctx context.Context) ([]store.JobDefinition, error) {
	return s.listJobs(ctx, "SELECT job_id, job_name, description, schedule, is_active, created_at, updated_at FROM job_definitions WHERE is_active = TRUE ORDER BY created_at ASC")
}

func (s *Store) listJobs(ctx context.Context, query string) ([]store.JobDefinition, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Storage("postgres.listJobs", err)
	}
	defer rows.Close()

	var jobs []store.JobDefinition
	for rows.Next() {
		var j store.JobDefinition
		if err := rows.Scan(&j.JobID, &j.JobName, &j.Description, &j.Schedule, &j.IsActive, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, apperrors.Storage("postgres.listJobs.scan", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("postgres.listJobs.rows", err)
	}
	return jobs, nil
}

// DeleteJob removes a job; tasks and runs cascade via FK constraints.
func (s *Store) DeleteJob(ctx context.Context, jobID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM job_definitions WHERE job_id = $1", jobID)
	if err != nil {
		return apperrors.Storage("postgres.DeleteJob", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Storage("postgres.DeleteJob.rowsAffected", err)
	}
	if n == 0 {
		return apperrors.NotFound("job", jobID.String())
	}
	return nil
}
