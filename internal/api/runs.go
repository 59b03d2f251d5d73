package api

import (
	"net/http"

	"github.com/google/uuid"

	"eltorch/internal/apperrors"
	pkgapi "eltorch/pkg/api"
)

// ListRuns handles GET /runs.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.jobs.ListRuns(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	responses := make([]pkgapi.RunResponse, len(runs))
	for i, run := range runs {
		responses[i] = runToResponse(run)
	}
	h.respondJSON(w, http.StatusOK, responses)
}

// GetRun handles GET /runs/{run_id}.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("run_id"))
	if err != nil {
		h.respondError(w, apperrors.Validation("run_id", "not a valid UUID"))
		return
	}

	run, err := h.jobs.GetRun(r.Context(), runID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, runToResponse(*run))
}
