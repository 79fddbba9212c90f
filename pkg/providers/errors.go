package providers

import (
	"fmt"
	"time"
)

// UpstreamError represents a non-success response from a provider.
type UpstreamError struct {
	// Provider is the id of the provider that returned the error.
	Provider string

	// StatusCode is the upstream HTTP status code (0 for transport faults).
	StatusCode int

	// Message is the upstream error body or a transport error description.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents an upstream call that exceeded its deadline.
type TimeoutError struct {
	// Provider is the id of the provider where the timeout occurred.
	Provider string

	// Timeout is the deadline that was exceeded.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q request timeout after %s", e.Provider, e.Timeout)
}

// DiscoveryError represents a failed capability probe. Discovery failures
// are non-fatal: the provider stays registered with the probed flag false.
type DiscoveryError struct {
	// Provider is the id of the probed provider.
	Provider string

	// Format is the wire format the probe tested.
	Format Format

	// StatusCode is the probe response status (0 for transport faults).
	StatusCode int

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *DiscoveryError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q %s probe failed (status %d)", e.Provider, e.Format, e.StatusCode)
	}
	return fmt.Sprintf("provider %q %s probe failed: %v", e.Provider, e.Format, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *DiscoveryError) Unwrap() error {
	return e.Cause
}
