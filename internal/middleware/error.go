package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Recover turns a handler panic into a clean 500 so one bad request cannot
// take the process down. The panic value and stack are logged server-side
// and never echoed to the client; the body follows the same envelope the
// handlers package emits.
func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.Error("handler panic",
						zap.Any("panic", v),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"),
					)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]any{
						"success":   false,
						"error":     "Internal Server Error",
						"message":   "An unexpected error occurred",
						"timestamp": time.Now().UTC().Format(time.RFC3339),
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
