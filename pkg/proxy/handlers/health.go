package handlers

import (
	"encoding/json"
	"net/http"

	"relaypoint/gateway/pkg/providers"
	"relaypoint/gateway/pkg/proxy"
)

// ServiceName identifies the gateway in health responses. The
// lifecycle manager polls a window of ports and uses this marker to
// tell its own gateway apart from an unrelated server that happens to
// answer /health.
const ServiceName = "relaypoint"

// HealthHandler reports gateway status plus a provider and alias
// inventory.
type HealthHandler struct {
	registry *providers.Registry
	table    proxy.TableSource
	ready    func() bool
}

// NewHealthHandler creates the handler for GET /health. The ready
// function reports whether boot discovery has completed.
func NewHealthHandler(registry *providers.Registry, table proxy.TableSource, ready func() bool) *HealthHandler {
	return &HealthHandler{registry: registry, table: table, ready: ready}
}

type providerHealth struct {
	Name      string   `json:"name"`
	Models    []string `json:"models"`
	OpenAI    bool     `json:"openai"`
	Anthropic bool     `json:"anthropic"`
}

type healthResponse struct {
	Service   string           `json:"service"`
	Status    string           `json:"status"`
	Providers []providerHealth `json:"providers"`
	Aliases   []string         `json:"aliases"`
}

// ServeHTTP implements http.Handler. A gateway still running boot
// discovery answers 503 so health pollers keep waiting.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		proxy.WriteError(w, http.StatusMethodNotAllowed, proxy.ErrTypeInvalidRequest, "method not allowed")
		return
	}

	resp := healthResponse{
		Service: ServiceName,
		Status:  "ok",
	}
	status := http.StatusOK
	if h.ready != nil && !h.ready() {
		resp.Status = "starting"
		status = http.StatusServiceUnavailable
	}

	for _, p := range h.registry.All() {
		resp.Providers = append(resp.Providers, providerHealth{
			Name:      p.ID,
			Models:    p.Models(),
			OpenAI:    p.SupportsOpenAI(),
			Anthropic: p.SupportsAnthropic(),
		})
	}
	resp.Aliases = h.table().Names()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
