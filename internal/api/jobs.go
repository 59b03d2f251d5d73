package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"eltorch/internal/apperrors"
	"eltorch/internal/store"
	pkgapi "eltorch/pkg/api"
)

// CreateJob handles POST /jobs.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req pkgapi.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperrors.Validation("body", "invalid JSON: "+err.Error()))
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	tasks := make([]store.NewTaskInput, len(req.Tasks))
	for i, t := range req.Tasks {
		tasks[i] = store.NewTaskInput{
			ExtractorConfig: t.ExtractorConfig,
			LoaderConfig:    t.LoaderConfig,
		}
	}

	input := store.NewJobInput{
		JobName:     req.JobName,
		Description: req.Description,
		Schedule:    req.Schedule,
		IsActive:    active,
		Tasks:       tasks,
	}

	job, createdTasks, err := h.jobs.CreateJob(ctx, input)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, jobToResponse(*job, createdTasks))
}

// ListJobs handles GET /jobs.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.ListJobs(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	responses := make([]pkgapi.JobResponse, len(jobs))
	for i, job := range jobs {
		responses[i] = jobToResponse(job, nil)
	}
	h.respondJSON(w, http.StatusOK, responses)
}

// GetJob handles GET /jobs/{job_id}.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(r.PathValue("job_id"))
	if err != nil {
		h.respondError(w, apperrors.Validation("job_id", "not a valid UUID"))
		return
	}

	job, tasks, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, jobToResponse(*job, tasks))
}

// RunJob handles POST /jobs/{job_id}/run: a manual trigger.
func (h *Handlers) RunJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(r.PathValue("job_id"))
	if err != nil {
		h.respondError(w, apperrors.Validation("job_id", "not a valid UUID"))
		return
	}

	run, err := h.jobs.Trigger(r.Context(), jobID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, runToResponse(*run))
}
