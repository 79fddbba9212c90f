package providers

import (
	"net/http"
	"sort"
	"time"
)

// RegistryOptions tunes the shared upstream HTTP client.
type RegistryOptions struct {
	// MaxIdleConns caps the total idle keep-alive sockets in the pool.
	MaxIdleConns int

	// MaxIdleConnsPerHost caps idle sockets per upstream host.
	MaxIdleConnsPerHost int

	// MaxConnsPerHost caps concurrent sockets per upstream host.
	MaxConnsPerHost int

	// IdleConnTimeout is how long an idle connection stays pooled.
	IdleConnTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for upstream response headers.
	// It does not bound the body, so streaming responses of any length
	// stay open once headers have arrived.
	ResponseHeaderTimeout time.Duration
}

func (o *RegistryOptions) applyDefaults() {
	if o.MaxIdleConns == 0 {
		o.MaxIdleConns = 100
	}
	if o.MaxIdleConnsPerHost == 0 {
		o.MaxIdleConnsPerHost = 10
	}
	if o.MaxConnsPerHost == 0 {
		o.MaxConnsPerHost = 64
	}
	if o.IdleConnTimeout == 0 {
		o.IdleConnTimeout = 90 * time.Second
	}
	if o.ResponseHeaderTimeout == 0 {
		o.ResponseHeaderTimeout = 60 * time.Second
	}
}

// Registry holds the registered providers and the pooled HTTP client they
// share. The provider set is fixed once the registry is built.
type Registry struct {
	providers map[string]*Provider
	client    *http.Client
}

// NewRegistry builds a registry from the given providers.
func NewRegistry(list []*Provider, opts RegistryOptions) *Registry {
	opts.applyDefaults()

	transport := &http.Transport{
		MaxIdleConns:          opts.MaxIdleConns,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		MaxConnsPerHost:       opts.MaxConnsPerHost,
		IdleConnTimeout:       opts.IdleConnTimeout,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
	}

	m := make(map[string]*Provider, len(list))
	for _, p := range list {
		m[p.ID] = p
	}

	return &Registry{
		providers: m,
		client:    &http.Client{Transport: transport},
	}
}

// Get returns the provider with the given id, or nil.
func (r *Registry) Get(id string) *Provider {
	return r.providers[id]
}

// All returns every registered provider, sorted by id.
func (r *Registry) All() []*Provider {
	out := make([]*Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	return len(r.providers)
}

// Client returns the shared pooled HTTP client.
func (r *Registry) Client() *http.Client {
	return r.client
}

// Close releases idle connections held by the pool.
func (r *Registry) Close() {
	r.client.CloseIdleConnections()
}
