// Package observability provides OpenTelemetry tracing and metrics for
// orthotile runs.
//
// Telemetry is a component: when enabled it installs OTLP/HTTP trace and
// metric providers at run start and flushes them at run end. When disabled
// the global no-op providers stay in place and every instrument is free.
//
//	tel := observability.NewTelemetry(cfg.Observability, "orthotile", version.Version)
//	metrics, err := observability.NewMetrics(observability.Meter("orthotile"))
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanSession)
//	defer span.End()
package observability
