// Relaypoint is a local LLM request router. It exposes the two common
// chat wire conventions on one port, discovers what each configured
// provider can speak, and routes public model aliases to upstream
// providers with ordered fallback.
//
// Usage:
//
//	# Start with environment configuration only
//	PROVIDER_OLLAMA_URL=http://localhost:11434 \
//	PROVIDER_OLLAMA_KEY=unused \
//	ALIAS_FAST=ollama:llama3 \
//	relaypoint run
//
//	# Start with a YAML config file
//	relaypoint run --config /etc/relaypoint/relaypoint.yaml
//
//	# Show version information
//	relaypoint version
package main

func main() {
	Execute()
}
