// Package telemetry provides observability instrumentation for carve.
//
// The package integrates structured logging (zerolog) and metrics
// (Prometheus) behind a single configuration type, so the CLI and the
// engine share one way of reporting what they do.
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = version
//
//	logger, err := telemetry.NewLogger(cfg.Logging)
//	if err != nil {
//	    return err
//	}
//
//	metrics, err := telemetry.NewMetrics(cfg.Metrics)
//	if err != nil {
//	    return err
//	}
//
// Loggers travel through contexts:
//
//	ctx = logger.WithContext(ctx)
//	telemetry.FromContext(ctx).WithStrategy("whole_disk").Info("resolving")
//
// A Metrics built from a disabled configuration is a no-op. The engine
// records run, step and backend-call outcomes without checking whether
// metrics collection is active.
package telemetry
