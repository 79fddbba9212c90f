package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"

	"relaypoint/gateway/pkg/routing"
)

// classifyStatus maps an upstream response status to a failure class.
// ok is false for statuses that never qualify for fallback; those are
// relayed to the caller as-is, success and client errors alike.
func classifyStatus(status int) (routing.FailureClass, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		return routing.ClassRateLimited, true
	case status >= 500:
		return routing.ClassServerError, true
	default:
		return "", false
	}
}

// classifyError maps a transport-level failure to a failure class.
// Deadline and timeout faults are timeouts; everything else, refused
// connections included, counts as a server error since the provider
// failed to produce a response.
func classifyError(err error) routing.FailureClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return routing.ClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return routing.ClassTimeout
	}
	return routing.ClassServerError
}
