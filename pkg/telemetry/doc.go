// Package telemetry provides observability instrumentation for the provider
// host.
//
// The telemetry package integrates structured logging (zerolog), distributed
// tracing (OpenTelemetry), and metrics (Prometheus) into a unified system
// for monitoring and debugging provider RPC handling.
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "froyo-provider"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// Request handling uses the RPC helpers:
//
//	ctx = telemetry.WithRPCContext(ctx, "Create", req.ID)
//	defer telemetry.EndRPCContext(ctx, "Create", status, err)
//
// Log output defaults to stderr: the host's stdout is reserved for the port
// handshake with the engine.
package telemetry
