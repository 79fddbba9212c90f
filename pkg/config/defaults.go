package config

import "time"

// Default values applied by ApplyDefaults.
const (
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 8484
	DefaultPortAttempts      = 10
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultProbeTimeout      = 8 * time.Second
	DefaultMaxBodyBytes      = 10 * 1024 * 1024
	DefaultUpstreamTimeout   = 120 * time.Second
	DefaultMetricsPath       = "/metrics"
)

// Probe timeouts are clamped to this window.
const (
	MinProbeTimeout = 5 * time.Second
	MaxProbeTimeout = 10 * time.Second
)

// ApplyDefaults fills zero values with defaults. It is idempotent.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.PortAttempts == 0 {
		cfg.Server.PortAttempts = DefaultPortAttempts
	}
	if cfg.Server.ReadHeaderTimeout == 0 {
		cfg.Server.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Discovery.ProbeTimeout == 0 {
		cfg.Discovery.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.Discovery.ProbeTimeout < MinProbeTimeout {
		cfg.Discovery.ProbeTimeout = MinProbeTimeout
	}
	if cfg.Discovery.ProbeTimeout > MaxProbeTimeout {
		cfg.Discovery.ProbeTimeout = MaxProbeTimeout
	}

	if cfg.Proxy.MaxBodyBytes == 0 {
		cfg.Proxy.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Proxy.UpstreamTimeout == 0 {
		cfg.Proxy.UpstreamTimeout = DefaultUpstreamTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	if cfg.Aliases == nil {
		cfg.Aliases = make(map[string]AliasConfig)
	}
}
