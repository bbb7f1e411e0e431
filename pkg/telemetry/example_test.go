package telemetry_test

import (
	"context"
	"errors"

	"github.com/openfroyo/froyo-provider/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = "froyo-provider"
	cfg.ServiceVersion = "1.0.0"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	logger := telemetry.FromContext(ctx)
	logger.Info("provider host started")

	// Output can vary, so we don't specify output for this example
}

// Example_rpcInstrumentation demonstrates per-request instrumentation.
func Example_rpcInstrumentation() {
	tel, _ := telemetry.NewTelemetry(telemetry.DefaultConfig())
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())
	ctx = telemetry.WithRPCContext(ctx, "Create", "req-1")

	err := telemetry.RecordProviderOperation(ctx, "kv", "Create", func() error {
		return nil
	})
	telemetry.EndRPCContext(ctx, "Create", "ok", err)

	// Output can vary, so we don't specify output for this example
}

// Example_instrumentedOperation demonstrates the operation helper.
func Example_instrumentedOperation() {
	tel, _ := telemetry.NewTelemetry(telemetry.DefaultConfig())
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ic := telemetry.StartOperation(ctx, "store.put",
		attribute.String("resource.urn", "urn:froyo:s::p::kv:index:Pair::n"))
	opErr := errors.New("disk full")
	ic.Logger.WithError(opErr).Error("checkpoint write failed")
	ic.End(opErr)

	// Output can vary, so we don't specify output for this example
}
