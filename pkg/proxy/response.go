package proxy

import (
	"encoding/json"
	"io"
	"net/http"
)

// ErrorBody is the JSON error envelope returned for every failed
// request, matching the OpenAI error convention both client SDKs
// tolerate.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error fields.
type ErrorDetail struct {
	Message string   `json:"message"`
	Type    string   `json:"type"`
	Details []string `json:"details,omitempty"`
}

// Error types used in responses.
const (
	ErrTypeInvalidRequest = "invalid_request_error"
	ErrTypeRouting        = "routing_error"
	ErrTypeUpstream       = "upstream_error"
	ErrTypeInternal       = "internal_error"
)

// WriteError writes a structured JSON error response.
func WriteError(w http.ResponseWriter, status int, errType, message string, details ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: ErrorDetail{
		Message: message,
		Type:    errType,
		Details: details,
	}})
}

// relay copies an upstream response to the caller. The body is copied
// chunk by chunk with a flush after each read so streamed tokens reach
// the client as they arrive; nothing is accumulated.
func relay(w http.ResponseWriter, resp *http.Response) error {
	for _, h := range []string{"Content-Type", "Cache-Control", "X-Request-Id"} {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
