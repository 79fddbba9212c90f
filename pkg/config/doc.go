// Package config defines the gateway configuration and its three sources:
// an optional YAML file, the flat PROVIDER_*/ALIAS_* environment table, and
// programmatic construction for tests and embedders.
//
// The loading sequence is file, then defaults, then the environment
// overlay, then validation. Environment parsing takes an explicit []string
// environ, never reading the process environment itself, so tests can
// supply configuration without mutating global state.
//
// Partial configuration is tolerated: a provider entry missing its URL or
// key is skipped with a warning, and an alias referencing only unknown
// providers is rejected at table build time. Neither is fatal.
package config
