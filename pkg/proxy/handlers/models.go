package handlers

import (
	"encoding/json"
	"net/http"

	"relaypoint/gateway/pkg/proxy"
)

// ModelsHandler enumerates the configured alias names in the OpenAI
// model-list shape, so client pickers show the gateway's public names
// rather than upstream model ids.
type ModelsHandler struct {
	table proxy.TableSource
}

// NewModelsHandler creates the handler for GET /v1/models.
func NewModelsHandler(table proxy.TableSource) *ModelsHandler {
	return &ModelsHandler{table: table}
}

type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// ServeHTTP implements http.Handler.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		proxy.WriteError(w, http.StatusMethodNotAllowed, proxy.ErrTypeInvalidRequest, "method not allowed")
		return
	}

	names := h.table().Names()
	data := make([]modelEntry, len(names))
	for i, name := range names {
		data[i] = modelEntry{ID: name, Object: "model", OwnedBy: "relaypoint"}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   data,
	})
}
