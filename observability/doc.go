// Package observability wires OpenTelemetry tracing and metrics for
// filevault.
//
// When disabled, nothing is exported and the global no-op providers stay in
// place, so instrumented code runs unchanged.
//
//	shutdown, err := observability.Setup(ctx, cfg.Observability, info, log)
//	defer shutdown(context.Background())
//	metrics, _ := observability.NewMetrics(observability.Meter(observability.InstrumentationName))
package observability
