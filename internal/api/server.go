package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"eltorch/internal/api/middleware"
	"eltorch/internal/jobmanager"
)

// Server is the HTTP server exposing the REST surface over the Job Manager.
type Server struct {
	httpServer *http.Server
}

// NewServer wires the routes and middleware and builds a Server listening
// on addr. systemToken, if non-empty, gates every route except /health
// and /metrics behind a bearer token. metricsHandler, if non-nil, is
// mounted at /metrics.
func NewServer(addr string, jobs *jobmanager.Manager, log *slog.Logger, systemToken string, metricsHandler http.Handler) *Server {
	h := NewHandlers(jobs, log)
	auth := middleware.Auth(systemToken)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.Health)

	mux.Handle("POST /jobs", auth(http.HandlerFunc(h.CreateJob)))
	mux.Handle("GET /jobs", auth(http.HandlerFunc(h.ListJobs)))
	mux.Handle("GET /jobs/{job_id}", auth(http.HandlerFunc(h.GetJob)))
	mux.Handle("POST /jobs/{job_id}/run", auth(http.HandlerFunc(h.RunJob)))
	mux.Handle("GET /runs", auth(http.HandlerFunc(h.ListRuns)))
	mux.Handle("GET /runs/{run_id}", auth(http.HandlerFunc(h.GetRun)))

	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      middleware.RequestID(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until ctx is cancelled or the
// server fails to start.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
