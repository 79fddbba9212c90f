package gateway

import (
	"log/slog"
	"strings"

	"relaypoint/gateway/pkg/config"
	"relaypoint/gateway/pkg/routing"
)

// parseTarget splits a "provider" or "provider:model" entry. An empty
// model means the caller decides which model name to reuse.
func parseTarget(s string) (provider, model string) {
	provider, model, _ = strings.Cut(strings.TrimSpace(s), ":")
	return strings.ToLower(strings.TrimSpace(provider)), strings.TrimSpace(model)
}

// buildAliases converts alias configuration into routing aliases. A
// bare primary target reuses the alias name as the upstream model; a
// bare fallback target reuses the primary's model. Unknown failure
// class names are dropped with a warning.
func buildAliases(aliases map[string]config.AliasConfig, logger *slog.Logger) []*routing.Alias {
	out := make([]*routing.Alias, 0, len(aliases))

	for name, ac := range aliases {
		provider, model := parseTarget(ac.Target)
		if provider == "" {
			logger.Warn("skipping alias without a primary target", "alias", name)
			continue
		}
		if model == "" {
			model = name
		}

		targets := []routing.Target{{Provider: provider, Model: model}}
		for _, fb := range ac.Fallback {
			fbProvider, fbModel := parseTarget(fb)
			if fbProvider == "" {
				continue
			}
			if fbModel == "" {
				fbModel = model
			}
			targets = append(targets, routing.Target{Provider: fbProvider, Model: fbModel})
		}

		var policy routing.FallbackPolicy
		if len(ac.FallbackOn) > 0 {
			policy = routing.FallbackPolicy{}
			for _, s := range ac.FallbackOn {
				class, ok := routing.ParseFailureClass(s)
				if !ok {
					logger.Warn("ignoring unknown failure class", "alias", name, "class", s)
					continue
				}
				policy[class] = true
			}
		}

		out = append(out, &routing.Alias{
			Name:       name,
			Targets:    targets,
			FallbackOn: policy,
		})
	}

	return out
}
