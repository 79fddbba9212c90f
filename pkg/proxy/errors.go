package proxy

import (
	"fmt"
	"strings"

	"relaypoint/gateway/pkg/routing"
)

// BadRequestError reports a client error in the inbound request.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

// AttemptFailure records why one target did not serve the request.
type AttemptFailure struct {
	Provider string
	Model    string
	Class    routing.FailureClass
	Detail   string
}

func (f AttemptFailure) String() string {
	if f.Model != "" {
		return fmt.Sprintf("%s:%s: %s: %s", f.Provider, f.Model, f.Class, f.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", f.Provider, f.Class, f.Detail)
}

// ExhaustedError reports that every target of an alias failed. It
// carries one failure per attempted target so the caller can see the
// whole chain.
type ExhaustedError struct {
	Alias    string
	Failures []AttemptFailure
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return fmt.Sprintf("alias %q: all targets failed: %s", e.Alias, strings.Join(parts, "; "))
}
