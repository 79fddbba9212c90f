package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"relaypoint/gateway/pkg/proxy"
)

// Recovery turns a handler panic into a 500 JSON error instead of
// tearing down the connection. The panic and stack are logged; the
// client sees no internal detail.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic in handler",
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"request_id", GetRequestID(r.Context()),
						"stack", string(debug.Stack()),
					)
					proxy.WriteError(w, http.StatusInternalServerError, proxy.ErrTypeInternal,
						"internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
