package routing

import "strings"

// FailureClass is a category of upstream failure that can trigger fallback.
type FailureClass string

const (
	// ClassServerError covers 5xx responses and unreachable upstreams.
	ClassServerError FailureClass = "server_error"

	// ClassTimeout covers upstream calls that exceeded their deadline.
	ClassTimeout FailureClass = "timeout"

	// ClassRateLimited covers 429 responses.
	ClassRateLimited FailureClass = "rate_limited"
)

// ParseFailureClass maps a configuration string to a FailureClass.
// Accepts a few spellings seen in the wild ("5xx", "429").
func ParseFailureClass(s string) (FailureClass, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "server_error", "5xx", "server-error":
		return ClassServerError, true
	case "timeout":
		return ClassTimeout, true
	case "rate_limited", "rate-limited", "429":
		return ClassRateLimited, true
	default:
		return "", false
	}
}

// FallbackPolicy is the set of failure classes that justify advancing to
// the next target.
type FallbackPolicy map[FailureClass]bool

// DefaultFallbackPolicy triggers fallback on every qualifying class.
func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		ClassServerError: true,
		ClassTimeout:     true,
		ClassRateLimited: true,
	}
}

// Contains reports whether the policy includes the given class.
func (p FallbackPolicy) Contains(c FailureClass) bool {
	return p[c]
}

// Classes returns the included classes in a stable order.
func (p FallbackPolicy) Classes() []string {
	var out []string
	for _, c := range []FailureClass{ClassServerError, ClassTimeout, ClassRateLimited} {
		if p[c] {
			out = append(out, string(c))
		}
	}
	return out
}

// Target is one (provider, upstream model) pair considered during dispatch.
type Target struct {
	// Provider is the id of the provider to dispatch to.
	Provider string

	// Model is the upstream model name sent to that provider.
	Model string
}

// Alias maps a public model name to an ordered list of targets.
type Alias struct {
	// Name is the public model name clients request.
	Name string

	// Targets is the ordered target list: primary first, then fallbacks.
	Targets []Target

	// FallbackOn is the set of failure classes that advance iteration.
	FallbackOn FallbackPolicy
}
