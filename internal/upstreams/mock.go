// Package upstreams provides fake provider servers for tests. A Mock
// answers the capability probes for one or both wire formats and
// serves configurable chat responses, including gated streams.
package upstreams

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
)

// Mock is a fake upstream provider.
type Mock struct {
	server *httptest.Server

	acceptBearer bool
	acceptAPIKey bool

	mu     sync.Mutex
	models []string
	chat   http.HandlerFunc

	probeHits atomic.Int32
	chatHits  atomic.Int32
}

// Option configures a Mock.
type Option func(*Mock)

// WithModels sets the model ids the mock advertises.
func WithModels(models ...string) Option {
	return func(m *Mock) { m.models = models }
}

// WithChat sets the handler for chat traffic on both endpoint paths.
func WithChat(h http.HandlerFunc) Option {
	return func(m *Mock) { m.chat = h }
}

// WithFormats controls which probe authentications succeed.
func WithFormats(bearer, apiKey bool) Option {
	return func(m *Mock) {
		m.acceptBearer = bearer
		m.acceptAPIKey = apiKey
	}
}

// New starts a mock that accepts bearer-token auth only, the common
// case for OpenAI-convention local servers.
func New(opts ...Option) *Mock {
	m := &Mock{
		acceptBearer: true,
		models:       []string{"default-model"},
		chat: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"mock","choices":[]}`))
		},
	}
	for _, opt := range opts {
		opt(m)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", m.handleModels)
	mux.HandleFunc("/v1/chat/completions", m.handleChat)
	mux.HandleFunc("/v1/messages", m.handleChat)
	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the mock's base URL.
func (m *Mock) URL() string { return m.server.URL }

// Close shuts the mock down.
func (m *Mock) Close() { m.server.Close() }

// ProbeHits returns how many model-list probes arrived.
func (m *Mock) ProbeHits() int { return int(m.probeHits.Load()) }

// ChatHits returns how many chat requests arrived.
func (m *Mock) ChatHits() int { return int(m.chatHits.Load()) }

// SetChat replaces the chat handler.
func (m *Mock) SetChat(h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chat = h
}

func (m *Mock) authorized(r *http.Request) bool {
	if m.acceptBearer && strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		return true
	}
	if m.acceptAPIKey && r.Header.Get("x-api-key") != "" && r.Header.Get("anthropic-version") != "" {
		return true
	}
	return false
}

func (m *Mock) handleModels(w http.ResponseWriter, r *http.Request) {
	m.probeHits.Add(1)
	if !m.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	m.mu.Lock()
	models := m.models
	m.mu.Unlock()

	type entry struct {
		ID string `json:"id"`
	}
	data := make([]entry, len(models))
	for i, id := range models {
		data[i] = entry{ID: id}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
}

func (m *Mock) handleChat(w http.ResponseWriter, r *http.Request) {
	m.chatHits.Add(1)
	m.mu.Lock()
	h := m.chat
	m.mu.Unlock()
	h(w, r)
}
