package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for fatal problems. Cosmetic
// problems like an alias pointing at an unregistered provider are
// handled downstream when the routing table is built, so a bad alias
// never prevents boot.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: fmt.Sprintf("port %d out of range", cfg.Server.Port)}
	}
	if cfg.Server.PortAttempts < 1 {
		return &ValidationError{Field: "server.port_attempts", Message: "must be at least 1"}
	}
	if cfg.Proxy.MaxBodyBytes < 1024 {
		return &ValidationError{Field: "proxy.max_body_bytes", Message: "must be at least 1024"}
	}

	for id, pc := range cfg.Providers {
		if strings.TrimSpace(pc.BaseURL) == "" {
			return &ValidationError{Field: "providers." + id + ".base_url", Message: "required"}
		}
		u, err := url.Parse(pc.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ValidationError{Field: "providers." + id + ".base_url", Message: "must be an http or https URL"}
		}
		if len(pc.APIKeys) == 0 {
			return &ValidationError{Field: "providers." + id + ".api_keys", Message: "at least one key required"}
		}
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "telemetry.logging.level", Message: "must be one of debug, info, warn, error"}
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return &ValidationError{Field: "telemetry.logging.format", Message: "must be json or text"}
	}

	return nil
}
