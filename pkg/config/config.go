package config

import "time"

// Config is the root configuration for a Relaypoint gateway instance.
// It is plain data owned by whoever constructs the gateway; there is no
// package-level singleton, so multiple gateways can coexist in one process.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server"`

	// Providers maps provider ids to their upstream endpoints.
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Aliases maps public model names to their routing targets.
	Aliases map[string]AliasConfig `yaml:"aliases"`

	// Discovery configures boot-time capability probing.
	Discovery DiscoveryConfig `yaml:"discovery"`

	// Proxy configures the dispatch engine.
	Proxy ProxyConfig `yaml:"proxy"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Host is the interface to bind. Default: 127.0.0.1.
	Host string `yaml:"host"`

	// Port is the requested listen port. When it is taken, the next
	// sequential ports are tried up to PortAttempts. Default: 8484.
	Port int `yaml:"port"`

	// PortAttempts bounds the sequential bind retries on an
	// address-in-use fault. Default: 10.
	PortAttempts int `yaml:"port_attempts"`

	// ReadHeaderTimeout bounds reading inbound request headers.
	// Default: 10s.
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// IdleTimeout is the keep-alive idle limit. Default: 120s.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown. Default: 15s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProviderConfig configures a single upstream provider.
type ProviderConfig struct {
	// BaseURL is the provider's API base URL.
	BaseURL string `yaml:"base_url"`

	// APIKeys holds one or more credentials, rotated round-robin.
	APIKeys []string `yaml:"api_keys"`
}

// AliasConfig configures one public model name.
type AliasConfig struct {
	// Target is the primary target: "provider" or "provider:model".
	// A bare provider reuses the alias name as the upstream model.
	Target string `yaml:"target"`

	// Fallback lists fallback targets in order, same syntax as Target.
	// A bare provider reuses the primary target's model name.
	Fallback []string `yaml:"fallback"`

	// FallbackOn names the failure classes that trigger fallback
	// (server_error, timeout, rate_limited). Empty means all three.
	FallbackOn []string `yaml:"fallback_on"`
}

// DiscoveryConfig configures capability probing.
type DiscoveryConfig struct {
	// ProbeTimeout bounds each individual model-list probe.
	// Default: 8s; clamped to the 5–10s window.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// RediscoverSchedule is an optional cron expression for re-probing
	// providers that answered neither boot probe. Empty disables it.
	RediscoverSchedule string `yaml:"rediscover_schedule"`
}

// ProxyConfig configures the dispatch engine.
type ProxyConfig struct {
	// MaxBodyBytes bounds inbound request bodies. Default: 10MB.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// UpstreamTimeout bounds each non-streaming upstream attempt.
	// Streaming attempts are bounded to response headers only.
	// Default: 120s.
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the slog setup.
type LoggingConfig struct {
	// Level is the minimum level: debug, info, warn, error. Default: info.
	Level string `yaml:"level"`

	// Format is json or text. Default: json.
	Format string `yaml:"format"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled controls whether /metrics is served. Default: true.
	Enabled *bool `yaml:"enabled"`

	// Path is the metrics endpoint path. Default: /metrics.
	Path string `yaml:"path"`
}

// MetricsEnabled resolves the tri-state Enabled flag.
func (m MetricsConfig) MetricsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// New returns a Config with defaults applied and empty provider and alias
// maps, ready for programmatic population.
func New() *Config {
	cfg := &Config{
		Providers: make(map[string]ProviderConfig),
		Aliases:   make(map[string]AliasConfig),
	}
	ApplyDefaults(cfg)
	return cfg
}
