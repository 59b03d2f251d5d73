package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"eltorch/internal/logger"
)

// RequestID tags each request's context with a correlation ID, generating
// one if the caller didn't supply an X-Request-ID header, so downstream
// logging via logger.FromContext carries it automatically.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := logger.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
