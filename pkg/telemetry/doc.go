// Package telemetry groups the gateway's observability concerns.
//
//   - logging: structured slog setup with credential masking
//   - metrics: Prometheus metrics collection and exposition
package telemetry
