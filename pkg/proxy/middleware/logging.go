package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"relaypoint/gateway/pkg/telemetry/metrics"
)

// responseWriter captures the status code written downstream. It keeps
// the Flusher passthrough so streamed responses still flush per chunk.
type responseWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.status = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.status = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Logging logs each completed request and records its metrics.
// The collector may be nil when metrics are disabled.
func Logging(logger *slog.Logger, collector *metrics.Collector) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			elapsed := time.Since(start)
			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.status,
				"duration_ms", elapsed.Milliseconds(),
				"request_id", GetRequestID(r.Context()),
			)
			if collector != nil {
				collector.RecordRequest(r.URL.Path, strconv.Itoa(rw.status), elapsed)
			}
		})
	}
}
