// Package middleware contains HTTP middleware for the orchestrator API.
package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	pkgapi "eltorch/pkg/api"
)

// Auth returns middleware that requires a "Bearer <token>" Authorization
// header matching systemToken. If systemToken is empty, auth is disabled
// and every request passes through, matching the single-operator
// deployment model where no multi-tenant identity exists to check.
func Auth(systemToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if systemToken == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(systemToken)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(pkgapi.ErrorResponse{Error: "unauthorized", Code: "401"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
