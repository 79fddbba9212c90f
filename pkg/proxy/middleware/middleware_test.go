package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"relaypoint/gateway/pkg/proxy"
)

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if seen == "" {
		t.Fatal("no request id in context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("response header = %q, context = %q", got, seen)
	}
	uuidRe := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	if !uuidRe.MatchString(seen) {
		t.Errorf("request id %q is not a UUID", seen)
	}
}

func TestRequestIDHonorsClient(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetRequestID(r.Context()); got != "client-id" {
			t.Errorf("request id = %q, want client-id", got)
		}
	}))

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(RequestIDHeader, "client-id")
	h.ServeHTTP(httptest.NewRecorder(), r)
}

func TestRecoveryReturnsJSON500(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	h := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/chat/completions", nil))

	if rec.Code != 500 {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body proxy.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Error.Type != proxy.ErrTypeInternal {
		t.Errorf("error type = %q", body.Error.Type)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("boom")) {
		t.Error("panic detail leaked to client")
	}
	if !bytes.Contains(logBuf.Bytes(), []byte("boom")) {
		t.Error("panic not logged")
	}
}

func TestLoggingCapturesStatus(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	h := Logging(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/v1/messages", nil))

	var entry map[string]any
	if err := json.Unmarshal(logBuf.Bytes(), &entry); err != nil {
		t.Fatalf("log entry not JSON: %v\n%s", err, logBuf.String())
	}
	if entry["status"] != float64(502) {
		t.Errorf("status = %v", entry["status"])
	}
	if entry["path"] != "/v1/messages" {
		t.Errorf("path = %v", entry["path"])
	}
}

func TestResponseWriterFlusherPassthrough(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, status: http.StatusOK}
	if _, ok := interface{}(rw).(http.Flusher); !ok {
		t.Fatal("responseWriter must keep http.Flusher for streaming")
	}
}
