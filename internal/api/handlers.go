// Package api implements the REST surface over the Job Manager and State
// Store: thin handlers that decode a request, call the core, and encode a
// response. No business logic lives here.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"eltorch/internal/apperrors"
	"eltorch/internal/jobmanager"
	"eltorch/internal/store"
	pkgapi "eltorch/pkg/api"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	jobs *jobmanager.Manager
	log  *slog.Logger
}

// NewHandlers constructs a Handlers instance over the given Job Manager.
func NewHandlers(jobs *jobmanager.Manager, log *slog.Logger) *Handlers {
	return &Handlers{jobs: jobs, log: log}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	h.log.Error("request failed", "error", err, "status", status)
	h.respondJSON(w, status, pkgapi.ErrorResponse{
		Error: err.Error(),
		Code:  strconv.Itoa(status),
	})
}

func jobToResponse(job store.JobDefinition, tasks []store.TaskDefinition) pkgapi.JobResponse {
	taskResponses := make([]pkgapi.TaskResponse, len(tasks))
	for i, t := range tasks {
		taskResponses[i] = pkgapi.TaskResponse{
			TaskID:          t.TaskID.String(),
			TaskOrder:       t.TaskOrder,
			ExtractorConfig: t.ExtractorConfig,
			LoaderConfig:    t.LoaderConfig,
		}
	}
	return pkgapi.JobResponse{
		JobID:       job.JobID.String(),
		JobName:     job.JobName,
		Description: job.Description,
		Schedule:    job.Schedule,
		IsActive:    job.IsActive,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		Tasks:       taskResponses,
	}
}

func runToResponse(run store.JobRun) pkgapi.RunResponse {
	return pkgapi.RunResponse{
		RunID:        run.RunID.String(),
		JobID:        run.JobID.String(),
		Status:       string(run.Status),
		TriggeredBy:  string(run.TriggeredBy),
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		ErrorMessage: run.ErrorMessage,
		CreatedAt:    run.CreatedAt,
	}
}
