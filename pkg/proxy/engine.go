package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"relaypoint/gateway/pkg/providers"
	"relaypoint/gateway/pkg/routing"
	"relaypoint/gateway/pkg/telemetry/metrics"
)

// TableSource returns the current routing table. The gateway swaps
// tables atomically on reload, so the engine fetches a fresh snapshot
// per request and uses it for the whole fallback iteration.
type TableSource func() *routing.Table

// EngineOptions configures a dispatch engine.
type EngineOptions struct {
	Registry *providers.Registry
	Table    TableSource

	// UpstreamTimeout bounds each non-streaming attempt. Streaming
	// attempts are bounded to response headers by the shared transport
	// and then stay open for the life of the stream.
	UpstreamTimeout time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// Engine resolves aliases and dispatches requests upstream with
// sequential fallback.
type Engine struct {
	registry *providers.Registry
	table    TableSource
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// NewEngine creates a dispatch engine.
func NewEngine(opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		registry: opts.Registry,
		table:    opts.Table,
		timeout:  opts.UpstreamTimeout,
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// Dispatch serves one parsed request: resolves the alias, walks its
// targets in declared order, and relays the first response that is not
// a qualifying failure. Exhausting every target yields a 502 whose
// details list one reason per attempted target.
func (e *Engine) Dispatch(ctx context.Context, w http.ResponseWriter, req *Request) {
	alias, err := e.table().Resolve(req.Model)
	if err != nil {
		e.logger.Info("unknown model alias", "model", req.Model)
		WriteError(w, http.StatusNotFound, ErrTypeRouting, fmt.Sprintf("unknown model %q", req.Model))
		return
	}

	var failures []AttemptFailure

	for i, target := range alias.Targets {
		if i > 0 && e.metrics != nil {
			e.metrics.RecordFallback(alias.Name)
		}

		failure, done := e.attempt(ctx, w, req, alias, target)
		if done {
			return
		}
		failures = append(failures, failure)
		e.logger.Warn("target failed, advancing",
			"alias", alias.Name,
			"provider", target.Provider,
			"model", target.Model,
			"class", string(failure.Class),
			"detail", failure.Detail,
		)
	}

	exhausted := &ExhaustedError{Alias: alias.Name, Failures: failures}
	details := make([]string, len(exhausted.Failures))
	for i, f := range exhausted.Failures {
		details[i] = f.String()
	}
	e.logger.Error("all targets exhausted", "alias", alias.Name, "attempts", len(failures), "error", exhausted)
	WriteError(w, http.StatusBadGateway, ErrTypeUpstream,
		fmt.Sprintf("all targets for %q failed", alias.Name), details...)
}

// attempt tries one target. done reports that a response was written
// and iteration must stop; otherwise the returned failure is recorded
// and the caller advances.
func (e *Engine) attempt(ctx context.Context, w http.ResponseWriter, req *Request, alias *routing.Alias, target routing.Target) (AttemptFailure, bool) {
	model := target.Model
	if model == "" {
		model = alias.Name
	}
	fail := func(class routing.FailureClass, detail string) AttemptFailure {
		return AttemptFailure{Provider: target.Provider, Model: model, Class: class, Detail: detail}
	}

	prov := e.registry.Get(target.Provider)
	if prov == nil {
		return fail(routing.ClassServerError, "provider not registered"), false
	}

	format, ok := prov.DispatchFormat(req.Format)
	if !ok {
		return fail(routing.ClassServerError, "provider answered no discovery probe"), false
	}

	// The model list is authoritative once discovery has populated it.
	// Skipping a target the provider never advertised avoids a
	// guaranteed upstream 404.
	if prov.ModelCount() > 0 && !prov.HasModel(model) {
		return fail(routing.ClassServerError, fmt.Sprintf("model %q not advertised by provider", model)), false
	}

	body, err := req.Render(format, model)
	if err != nil {
		return fail(routing.ClassServerError, fmt.Sprintf("translating request: %v", err)), false
	}

	attemptCtx := ctx
	if !req.Stream && e.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, prov.BaseURL+chatPath(format), bytes.NewReader(body))
	if err != nil {
		return fail(routing.ClassServerError, fmt.Sprintf("building request: %v", err)), false
	}
	httpReq.Header.Set("Content-Type", "application/json")
	applyAuth(httpReq, format, prov.NextCredential())

	start := time.Now()
	resp, err := e.registry.Client().Do(httpReq)
	if err != nil {
		class := classifyError(err)
		var attemptErr error = &providers.UpstreamError{Provider: target.Provider, Message: err.Error(), Cause: err}
		if class == routing.ClassTimeout {
			attemptErr = &providers.TimeoutError{Provider: target.Provider, Timeout: e.timeout}
		}
		e.recordUpstream(target.Provider, string(class))
		if !alias.FallbackOn.Contains(class) {
			WriteError(w, http.StatusBadGateway, ErrTypeUpstream, attemptErr.Error())
			return AttemptFailure{}, true
		}
		return fail(class, attemptErr.Error()), false
	}

	if class, qualifies := classifyStatus(resp.StatusCode); qualifies && alias.FallbackOn.Contains(class) {
		// Drain a little for connection reuse, then give up the socket.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		resp.Body.Close()
		e.recordUpstream(target.Provider, string(class))
		uerr := &providers.UpstreamError{
			Provider:   target.Provider,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
		return fail(class, uerr.Error()), false
	}

	defer resp.Body.Close()
	e.recordUpstream(target.Provider, upstreamOutcome(resp.StatusCode))
	e.logger.Info("request relayed",
		"alias", alias.Name,
		"provider", target.Provider,
		"model", model,
		"status", resp.StatusCode,
		"stream", req.Stream,
		"upstream_ms", time.Since(start).Milliseconds(),
	)

	if err := relay(w, resp); err != nil {
		// Headers are already written; nothing to do but log.
		e.logger.Warn("relay interrupted", "provider", target.Provider, "error", err)
	}
	return AttemptFailure{}, true
}

func (e *Engine) recordUpstream(provider, outcome string) {
	if e.metrics != nil {
		e.metrics.RecordUpstream(provider, outcome)
	}
}

func upstreamOutcome(status int) string {
	if status < 400 {
		return "success"
	}
	return "relayed_error"
}

// chatPath returns the chat endpoint path for a wire format.
func chatPath(format providers.Format) string {
	if format == providers.FormatAnthropic {
		return "/v1/messages"
	}
	return "/v1/chat/completions"
}

// applyAuth sets the authentication headers for a wire format. The two
// schemes are mutually exclusive.
func applyAuth(req *http.Request, format providers.Format, credential string) {
	if format == providers.FormatAnthropic {
		req.Header.Set("x-api-key", credential)
		req.Header.Set("anthropic-version", providers.AnthropicVersion)
		return
	}
	req.Header.Set("Authorization", "Bearer "+credential)
}
