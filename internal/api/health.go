package api

import "net/http"

// Health is a liveness probe; it returns 200 OK if the process is running.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
