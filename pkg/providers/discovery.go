package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// maxProbeBody bounds how much of a model-list response discovery will read.
const maxProbeBody = 4 * 1024 * 1024

// ProbeRecorder receives the outcome of every capability probe. Result
// is "ok" or "failed".
type ProbeRecorder interface {
	RecordProbe(provider, format, result string)
}

// Discoverer probes registered providers to learn which wire formats they
// accept and which models they serve. Discovery runs to completion for all
// providers before the dispatcher accepts traffic.
type Discoverer struct {
	registry *Registry

	// ProbeTimeout bounds each individual probe. Both probes for a
	// provider run independently, each under its own deadline.
	ProbeTimeout time.Duration

	// Recorder, when set, is told the outcome of each probe.
	Recorder ProbeRecorder
}

// NewDiscoverer creates a discoverer over the given registry.
func NewDiscoverer(registry *Registry, probeTimeout time.Duration) *Discoverer {
	if probeTimeout <= 0 {
		probeTimeout = 8 * time.Second
	}
	return &Discoverer{registry: registry, ProbeTimeout: probeTimeout}
}

// Discover probes every registered provider. Providers are probed
// concurrently; the call returns when all probes have finished, which
// makes it the startup barrier the dispatcher waits behind.
func (d *Discoverer) Discover(ctx context.Context) {
	d.probeAll(ctx, d.registry.All())
}

// Rediscover re-probes only providers that answered neither boot probe, so
// an upstream that comes up later rejoins routing. Already-discovered
// providers are left untouched.
func (d *Discoverer) Rediscover(ctx context.Context) {
	var pending []*Provider
	for _, p := range d.registry.All() {
		if !p.Discovered() {
			pending = append(pending, p)
		}
	}
	if len(pending) == 0 {
		return
	}
	slog.Info("re-probing undiscovered providers", "count", len(pending))
	d.probeAll(ctx, pending)
}

func (d *Discoverer) probeAll(ctx context.Context, list []*Provider) {
	var wg sync.WaitGroup
	for _, p := range list {
		wg.Add(1)
		go func(p *Provider) {
			defer wg.Done()
			d.probeProvider(ctx, p)
		}(p)
	}
	wg.Wait()
}

// probeProvider issues the two format probes for one provider and merges
// any returned model ids into its model set.
func (d *Discoverer) probeProvider(ctx context.Context, p *Provider) {
	var wg sync.WaitGroup
	for _, format := range []Format{FormatOpenAI, FormatAnthropic} {
		wg.Add(1)
		go func(f Format) {
			defer wg.Done()
			start := time.Now()
			models, err := d.probe(ctx, p, f)
			if err != nil {
				d.record(p.ID, f.String(), "failed")
				slog.Warn("capability probe failed",
					"provider", p.ID,
					"format", f.String(),
					"error", err,
				)
				return
			}
			d.record(p.ID, f.String(), "ok")
			p.setFormat(f)
			p.addModels(models)
			slog.Info("capability probe succeeded",
				"provider", p.ID,
				"format", f.String(),
				"models", len(models),
				"latency_ms", time.Since(start).Milliseconds(),
			)
		}(format)
	}
	wg.Wait()

	if !p.Discovered() {
		slog.Warn("provider excluded from routing until it answers a probe", "provider", p.ID)
	}
}

func (d *Discoverer) record(provider, format, result string) {
	if d.Recorder != nil {
		d.Recorder.RecordProbe(provider, format, result)
	}
}

// probe issues a single model-list request in the given wire format.
func (d *Discoverer) probe(ctx context.Context, p *Provider, f Format) ([]string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, d.ProbeTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1/models", p.BaseURL)
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &DiscoveryError{Provider: p.ID, Format: f, Cause: err}
	}

	key := p.NextCredential()
	switch f {
	case FormatOpenAI:
		req.Header.Set("Authorization", "Bearer "+key)
	case FormatAnthropic:
		req.Header.Set("x-api-key", key)
		req.Header.Set("anthropic-version", AnthropicVersion)
	}

	resp, err := d.registry.Client().Do(req)
	if err != nil {
		return nil, &DiscoveryError{Provider: p.ID, Format: f, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxProbeBody))
		return nil, &DiscoveryError{Provider: p.ID, Format: f, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return nil, &DiscoveryError{Provider: p.ID, Format: f, Cause: err}
	}

	models, err := parseModelList(body)
	if err != nil {
		return nil, &DiscoveryError{Provider: p.ID, Format: f, Cause: err}
	}
	return models, nil
}

// modelListResponse covers the model-list shapes both conventions return:
// OpenAI and Anthropic both use {"data":[{"id":...}]}, while some local
// servers answer {"models":[{"id"| "name":...}]}.
type modelListResponse struct {
	Data   []modelEntry `json:"data"`
	Models []modelEntry `json:"models"`
}

type modelEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func parseModelList(body []byte) ([]string, error) {
	var list modelListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("malformed model list: %w", err)
	}

	entries := list.Data
	if len(entries) == 0 {
		entries = list.Models
	}

	var ids []string
	for _, e := range entries {
		id := e.ID
		if id == "" {
			id = e.Name
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
