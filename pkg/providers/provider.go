package providers

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Format identifies an upstream wire convention.
type Format int

const (
	// FormatOpenAI is the chat-completions convention: bearer-token
	// authentication and the /v1/chat/completions request shape.
	FormatOpenAI Format = iota

	// FormatAnthropic is the messages convention: x-api-key plus
	// anthropic-version headers and the /v1/messages request shape.
	FormatAnthropic
)

// String returns the format name for logs and the health inventory.
func (f Format) String() string {
	switch f {
	case FormatOpenAI:
		return "openai"
	case FormatAnthropic:
		return "anthropic"
	default:
		return "unknown"
	}
}

// AnthropicVersion is the version header value sent on format-B requests.
const AnthropicVersion = "2023-06-01"

// Provider is a single upstream LLM API endpoint.
//
// ID, BaseURL and the credential list are fixed at registration. Capability
// flags and the model set are written by discovery and read by routing;
// flags are atomic and the model set is guarded by a read-write mutex, so
// request handling never blocks on discovery.
type Provider struct {
	// ID is the unique provider identifier from configuration.
	ID string

	// BaseURL is the API endpoint base URL, without a trailing slash.
	BaseURL string

	credentials []string
	cursor      atomic.Uint64

	openai    atomic.Bool
	anthropic atomic.Bool

	mu     sync.RWMutex
	models map[string]struct{}
}

// New creates a provider with the given identity and credentials.
func New(id, baseURL string, credentials []string) *Provider {
	return &Provider{
		ID:          id,
		BaseURL:     trimSlash(baseURL),
		credentials: credentials,
		models:      make(map[string]struct{}),
	}
}

// NextCredential returns the next credential in round-robin order.
// The cursor is advanced atomically, so concurrent callers observe the
// exact sequence k1, k2, ..., kN, k1, ... with no duplicates or skips.
func (p *Provider) NextCredential() string {
	if len(p.credentials) == 0 {
		return ""
	}
	if len(p.credentials) == 1 {
		return p.credentials[0]
	}
	n := p.cursor.Add(1) - 1
	return p.credentials[n%uint64(len(p.credentials))]
}

// CredentialCount returns the number of configured credentials.
func (p *Provider) CredentialCount() int {
	return len(p.credentials)
}

// SupportsOpenAI reports whether the provider answered the bearer-token probe.
func (p *Provider) SupportsOpenAI() bool {
	return p.openai.Load()
}

// SupportsAnthropic reports whether the provider answered the api-key probe.
func (p *Provider) SupportsAnthropic() bool {
	return p.anthropic.Load()
}

// Discovered reports whether the provider answered at least one probe.
// Undiscovered providers stay registered for diagnostics but are skipped
// by routing.
func (p *Provider) Discovered() bool {
	return p.openai.Load() || p.anthropic.Load()
}

// Supports reports whether the provider accepts the given wire format.
func (p *Provider) Supports(f Format) bool {
	switch f {
	case FormatOpenAI:
		return p.openai.Load()
	case FormatAnthropic:
		return p.anthropic.Load()
	default:
		return false
	}
}

// DispatchFormat picks the wire format for an outbound request. The inbound
// format is preferred when the provider supports it, so same-format requests
// pass through without translation.
func (p *Provider) DispatchFormat(inbound Format) (Format, bool) {
	if p.Supports(inbound) {
		return inbound, true
	}
	switch inbound {
	case FormatOpenAI:
		if p.anthropic.Load() {
			return FormatAnthropic, true
		}
	case FormatAnthropic:
		if p.openai.Load() {
			return FormatOpenAI, true
		}
	}
	return inbound, false
}

// setFormat records a successful probe for the given format.
func (p *Provider) setFormat(f Format) {
	switch f {
	case FormatOpenAI:
		p.openai.Store(true)
	case FormatAnthropic:
		p.anthropic.Store(true)
	}
}

// addModels merges model identifiers into the provider's model set.
func (p *Provider) addModels(ids []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		if id != "" {
			p.models[id] = struct{}{}
		}
	}
}

// HasModel reports whether the discovered model set contains the given id.
func (p *Provider) HasModel(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.models[id]
	return ok
}

// ModelCount returns the size of the discovered model set.
func (p *Provider) ModelCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.models)
}

// Models returns the discovered model identifiers in sorted order.
func (p *Provider) Models() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.models))
	for id := range p.models {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func trimSlash(u string) string {
	for len(u) > 0 && u[len(u)-1] == '/' {
		u = u[:len(u)-1]
	}
	return u
}
