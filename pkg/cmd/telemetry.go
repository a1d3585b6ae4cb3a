package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/dukex/conductor/pkg/telemetry"
)

// NewEmitter creates the telemetry emitter. Tracing is only enabled when an
// OTLP endpoint is configured through the standard OTEL environment
// variables; otherwise span emission is a no-op.
func NewEmitter(ctx context.Context, logger *slog.Logger, serviceName string) *telemetry.Emitter {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return telemetry.NewNoopEmitter()
	}

	tracer, err := telemetry.NewTracer(ctx, serviceName)
	if err != nil {
		logger.WarnContext(ctx, "Failed to initialize tracer, telemetry disabled", "error", err)

		return telemetry.NewNoopEmitter()
	}

	return telemetry.NewEmitter(tracer)
}
