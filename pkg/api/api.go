// Package api contains shared JSON request/response structs. It is imported
// by both internal/api (the server) and cmd/eltctl (the CLI client).
package api

import (
	"encoding/json"
	"time"
)

// TaskRequest is one task's extract/load config as submitted at job-creation
// time; task_order is assigned by its position in the request's task list.
type TaskRequest struct {
	ExtractorConfig json.RawMessage `json:"extractor_config"`
	LoaderConfig    json.RawMessage `json:"loader_config"`
}

// CreateJobRequest is the request body for POST /jobs.
type CreateJobRequest struct {
	JobName     string        `json:"job_name"`
	Description string        `json:"description,omitempty"`
	Schedule    string        `json:"schedule"`
	IsActive    *bool         `json:"is_active,omitempty"`
	Tasks       []TaskRequest `json:"tasks"`
}

// TaskResponse represents one task of a job in API responses.
type TaskResponse struct {
	TaskID          string          `json:"task_id"`
	TaskOrder       int             `json:"task_order"`
	ExtractorConfig json.RawMessage `json:"extractor_config"`
	LoaderConfig    json.RawMessage `json:"loader_config"`
}

// JobResponse represents a job definition, with its tasks, in API responses.
type JobResponse struct {
	JobID       string         `json:"job_id"`
	JobName     string         `json:"job_name"`
	Description string         `json:"description,omitempty"`
	Schedule    string         `json:"schedule"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Tasks       []TaskResponse `json:"tasks,omitempty"`
}

// RunResponse represents one JobRun in API responses.
type RunResponse struct {
	RunID        string     `json:"run_id"`
	JobID        string     `json:"job_id"`
	Status       string     `json:"status"`
	TriggeredBy  string     `json:"triggered_by"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
