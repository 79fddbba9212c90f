package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"relaypoint/gateway/pkg/providers"
)

// Request is a parsed inbound chat request. The raw field map is kept
// so a same-format dispatch can forward the body with only the model
// name swapped, preserving every parameter the client sent.
type Request struct {
	// Format is the wire format the client spoke.
	Format providers.Format

	// Model is the requested alias name.
	Model string

	// Stream reports whether the client asked for a streamed response.
	Stream bool

	raw map[string]json.RawMessage
}

// ParseRequest reads and parses an inbound request body of up to
// maxBytes. Oversized bodies and malformed JSON yield a *BadRequestError.
func ParseRequest(r *http.Request, format providers.Format, maxBytes int64) (*Request, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, &BadRequestError{Message: fmt.Sprintf("reading request body: %v", err)}
	}
	if int64(len(body)) > maxBytes {
		return nil, &BadRequestError{Message: fmt.Sprintf("request body exceeds %d bytes", maxBytes)}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &BadRequestError{Message: "request body is not a JSON object"}
	}

	req := &Request{Format: format, raw: raw}

	if v, ok := raw["model"]; ok {
		if err := json.Unmarshal(v, &req.Model); err != nil {
			return nil, &BadRequestError{Message: "model must be a string"}
		}
	}
	req.Model = strings.TrimSpace(req.Model)
	if req.Model == "" {
		return nil, &BadRequestError{Message: "model is required"}
	}

	if v, ok := raw["stream"]; ok {
		if err := json.Unmarshal(v, &req.Stream); err != nil {
			return nil, &BadRequestError{Message: "stream must be a boolean"}
		}
	}

	return req, nil
}

// field returns the raw JSON of a top-level field, or nil.
func (r *Request) field(name string) json.RawMessage {
	return r.raw[name]
}
