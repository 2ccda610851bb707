// Package middleware holds the HTTP middleware shared by both
// transports.
package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"tanya/internal/httputil"
)

// Recovery converts a handler panic into a 500 problem response instead
// of letting it tear down the connection. A panicking exchange must not
// take the relay's other conversations with it.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.Error("panic while serving request",
						"panic", v,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)

					httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
