// Package providers implements the upstream provider registry for the
// Relaypoint gateway.
//
// A Provider describes a single upstream LLM API endpoint: its base URL, its
// credentials, and the capabilities learned at boot by probing it. Providers
// are registered once at startup and their identity (ID, URL, credentials)
// is immutable afterwards; only capability flags and the discovered model
// set change, and only through discovery.
//
// The registry owns a single pooled HTTP client shared by discovery probes
// and proxied requests, so keep-alive connections are amortized across
// requests to the same provider.
//
// Credential rotation is lock-free: each provider carries an atomically
// incremented cursor into its credential list, so concurrent requests
// rotate through keys without duplicate or skipped picks.
package providers
