// Package routing implements the alias table: the mapping from public model
// names to ordered lists of (provider, upstream model) targets, plus the
// per-alias fallback-trigger policy.
//
// Targets are tried strictly in declared order: primary first, then
// fallbacks as listed. There is no dynamic reordering by latency or cost.
package routing
