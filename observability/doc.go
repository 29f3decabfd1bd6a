// Package observability provides OpenTelemetry tracing and metrics for
// pipeline runs.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, &observability.TracerConfig{...})
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanProcessItem)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &observability.MeterConfig{...})
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewPipelineMetrics(observability.Meter("setheader"))
//	metrics.RecordReport(ctx, "succeeded")
package observability
