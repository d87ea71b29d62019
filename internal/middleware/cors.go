package middleware

import (
	"net/http"

	"presence-be/pkg/logger"
)

// Cross-origin headers overlaid on every response from the front door
const (
	corsAllowMethods = "GET,POST,OPTIONS"
	corsAllowHeaders = "content-type"
	contentTypeJSON  = "application/json; charset=utf-8"
)

// CORS overlays permissive cross-origin headers on every response and
// answers preflight requests with an empty 204 before they reach a
// handler. allowedOrigin defaults to "*" when empty.
func CORS(allowedOrigin string, logger *logger.Logger) func(http.Handler) http.Handler {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.WithFields(map[string]interface{}{
				"origin": r.Header.Get("Origin"),
				"method": r.Method,
				"path":   r.URL.Path,
			}).Debug("CORS request")

			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
			w.Header().Set("Content-Type", contentTypeJSON)

			// Preflight never reaches the counter instance
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
