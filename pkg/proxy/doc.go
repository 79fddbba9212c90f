// Package proxy implements the dispatch engine: it parses inbound
// chat requests in either supported wire format, resolves the
// requested alias to its ordered target list, translates the request
// into each target's wire format, and relays the upstream response.
//
// Fallback iteration is strictly sequential. A failed target's full
// latency is paid before the next target is attempted; racing targets
// speculatively was considered and rejected for its upstream cost.
//
// Responses are relayed byte-for-byte. Streaming bodies are flushed
// per chunk and never accumulated, so memory stays bounded regardless
// of response size.
package proxy
