package config

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var (
	providerKeyRe = regexp.MustCompile(`^PROVIDER_([A-Za-z0-9]+)_(URL|KEY)$`)
	aliasKeyRe    = regexp.MustCompile(`^ALIAS_([A-Za-z0-9_]+?)(_FALLBACK(?:_ON)?)?$`)
)

// ApplyEnviron overlays environment-style settings onto cfg. The
// environment is injected as a []string of KEY=VALUE entries so the
// overlay can be tested without touching the process environment.
//
// Recognized keys:
//
//	PROVIDER_<ID>_URL      provider base URL
//	PROVIDER_<ID>_KEY      API keys, comma-separated
//	ALIAS_<NAME>           primary target, "provider" or "provider:model"
//	ALIAS_<NAME>_FALLBACK  fallback targets, comma-separated
//	ALIAS_<NAME>_FALLBACK_ON  failure classes that trigger fallback
//	RELAYPOINT_PORT        listen port
//
// Provider IDs and alias names are lowercased. A provider with only a
// URL or only a key is dropped with a warning after the overlay.
func ApplyEnviron(cfg *Config, environ []string) {
	type partial struct {
		url  string
		keys []string
	}
	partials := make(map[string]*partial)

	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || value == "" {
			continue
		}

		if key == "RELAYPOINT_PORT" {
			port, err := strconv.Atoi(value)
			if err != nil || port < 1 || port > 65535 {
				slog.Warn("ignoring invalid RELAYPOINT_PORT", "value", value)
				continue
			}
			cfg.Server.Port = port
			continue
		}

		if m := providerKeyRe.FindStringSubmatch(key); m != nil {
			id := strings.ToLower(m[1])
			p := partials[id]
			if p == nil {
				p = &partial{}
				partials[id] = p
			}
			switch m[2] {
			case "URL":
				p.url = strings.TrimSpace(value)
			case "KEY":
				p.keys = splitList(value)
			}
			continue
		}

		if m := aliasKeyRe.FindStringSubmatch(key); m != nil {
			name := strings.ToLower(m[1])
			ac := cfg.Aliases[name]
			switch m[2] {
			case "":
				ac.Target = strings.TrimSpace(value)
			case "_FALLBACK":
				ac.Fallback = splitList(value)
			case "_FALLBACK_ON":
				ac.FallbackOn = splitList(value)
			}
			cfg.Aliases[name] = ac
		}
	}

	for id, p := range partials {
		if p.url == "" || len(p.keys) == 0 {
			slog.Warn("skipping incompletely configured provider",
				"provider", id,
				"has_url", p.url != "",
				"has_key", len(p.keys) > 0)
			continue
		}
		pc := cfg.Providers[id]
		pc.BaseURL = p.url
		pc.APIKeys = p.keys
		cfg.Providers[id] = pc
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
