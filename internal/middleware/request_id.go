package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"presence-be/pkg/logger"
)

type contextKey string

// RequestIDContextKey is the context key holding the request id
const RequestIDContextKey contextKey = "request_id"

// RequestID stamps each request with an id, exposed via the X-Request-ID
// response header and the logger context
func RequestID(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := generateRequestID()

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			r = r.WithContext(ctx)

			w.Header().Set("X-Request-ID", requestID)

			logger.WithField("request_id", requestID).Debug("Request received")

			next.ServeHTTP(w, r)
		})
	}
}

// generateRequestID generates a simple request ID
func generateRequestID() string {
	return fmt.Sprintf("%d-%d", time.Now().Unix(), time.Now().Nanosecond())
}
