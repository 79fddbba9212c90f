package handlers

import (
	"errors"
	"net/http"

	"relaypoint/gateway/pkg/providers"
	"relaypoint/gateway/pkg/proxy"
)

// ChatHandler serves the OpenAI-convention chat endpoint.
type ChatHandler struct {
	engine   *proxy.Engine
	maxBytes int64
}

// NewChatHandler creates the handler for POST /v1/chat/completions.
func NewChatHandler(engine *proxy.Engine, maxBytes int64) *ChatHandler {
	return &ChatHandler{engine: engine, maxBytes: maxBytes}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	serveChat(w, r, h.engine, providers.FormatOpenAI, h.maxBytes)
}

// MessagesHandler serves the Anthropic-convention chat endpoint.
type MessagesHandler struct {
	engine   *proxy.Engine
	maxBytes int64
}

// NewMessagesHandler creates the handler for POST /v1/messages.
func NewMessagesHandler(engine *proxy.Engine, maxBytes int64) *MessagesHandler {
	return &MessagesHandler{engine: engine, maxBytes: maxBytes}
}

// ServeHTTP implements http.Handler.
func (h *MessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	serveChat(w, r, h.engine, providers.FormatAnthropic, h.maxBytes)
}

func serveChat(w http.ResponseWriter, r *http.Request, engine *proxy.Engine, format providers.Format, maxBytes int64) {
	if r.Method != http.MethodPost {
		proxy.WriteError(w, http.StatusMethodNotAllowed, proxy.ErrTypeInvalidRequest, "method not allowed")
		return
	}

	req, err := proxy.ParseRequest(r, format, maxBytes)
	if err != nil {
		var badReq *proxy.BadRequestError
		if errors.As(err, &badReq) {
			proxy.WriteError(w, http.StatusBadRequest, proxy.ErrTypeInvalidRequest, badReq.Message)
			return
		}
		proxy.WriteError(w, http.StatusInternalServerError, proxy.ErrTypeInternal, "failed to read request")
		return
	}

	engine.Dispatch(r.Context(), w, req)
}
