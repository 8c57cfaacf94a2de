// Package telemetry provides unified observability for polcheck,
// combining structured logging, distributed tracing, metrics
// collection, and event publishing.
//
// # Overview
//
// The telemetry package wraps zerolog for structured logging,
// OpenTelemetry for tracing, and Prometheus for metrics behind a single
// Telemetry aggregate that travels through context.
//
// # Components
//
// Logger: zerolog-backed structured logger with component child loggers
// and domain field helpers (report_id, rule_id, dialect, resource).
//
// Tracer: OpenTelemetry tracer with OTLP and stdout exporters, plus
// span helpers for evaluation runs, document parsing, and reference
// comparison.
//
// Metrics: Prometheus collectors for documents parsed, verdicts by
// outcome, evaluation durations, divergences, and rule reloads. When
// metrics are disabled every recording method is a no-op.
//
// EventPublisher: buffered pub/sub for evaluation lifecycle events
// (started, completed, verdict failed, divergence detected) with
// per-subscriber filters.
//
// # Usage Example
//
//	tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(ctx)
//
//	ctx = tel.WithContext(ctx)
//
//	ctx = telemetry.WithEvaluationContext(ctx, reportID, policyFile, dialect)
//	// ... evaluate ...
//	telemetry.EndEvaluationContext(ctx, reportID, pass, err)
//
// # Thread Safety
//
// All types in this package are safe for concurrent use.
package telemetry
