// Package store contains the durable data model and State Store contract
// for the orchestrator: job definitions, their tasks, and job runs.
package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobDefinition is a schedulable unit: metadata plus an ordered task list
// (persisted separately as TaskDefinitions).
type JobDefinition struct {
	JobID       uuid.UUID
	JobName     string
	Description string
	Schedule    string // 6-field cron expression, or the literal "@manual"
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskDefinition is one ordered extract-then-load step of a job.
type TaskDefinition struct {
	TaskID          uuid.UUID
	JobID           uuid.UUID
	TaskOrder       int
	ExtractorConfig json.RawMessage
	LoaderConfig    json.RawMessage
}

// RunStatus is the lifecycle state of a JobRun.
type RunStatus string

const (
	RunStatusQueued  RunStatus = "queued"
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// TriggeredBy records what caused a JobRun to be created.
type TriggeredBy string

const (
	TriggeredByScheduled TriggeredBy = "scheduled"
	TriggeredByManual    TriggeredBy = "manual"
)

// JobRun is one invocation attempt of a job.
type JobRun struct {
	RunID        uuid.UUID
	JobID        uuid.UUID
	Status       RunStatus
	TriggeredBy  TriggeredBy
	StartedAt    *time.Time
	FinishedAt   *time.Time
	ErrorMessage *string
	CreatedAt    time.Time
}

// NewJobInput is the validated shape the Job Manager hands to the State
// Store to create a job and its tasks in one transaction.
type NewJobInput struct {
	JobName     string
	Description string
	Schedule    string
	IsActive    bool
	Tasks       []NewTaskInput
}

// NewTaskInput is one task's config as supplied at job-creation time;
// task_order is assigned by its position in the slice.
type NewTaskInput struct {
	ExtractorConfig json.RawMessage
	LoaderConfig    json.RawMessage
}
