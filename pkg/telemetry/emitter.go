package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Emitter records the semantic telemetry points of the request lifecycle:
// enqueue, status change, poll cycle, and follow-up scheduling. Each point
// becomes a span so downstream tooling sees them regardless of transport.
type Emitter struct {
	tracer trace.Tracer
}

// NewEmitter wraps a tracer.
func NewEmitter(tracer trace.Tracer) *Emitter {
	return &Emitter{tracer: tracer}
}

// NewNoopEmitter returns an emitter that records nothing, for tests.
func NewNoopEmitter() *Emitter {
	return &Emitter{tracer: noop.NewTracerProvider().Tracer("noop")}
}

func (e *Emitter) RequestEnqueued(ctx context.Context, requestID, externalKey, requestType string) {
	_, span := e.tracer.Start(ctx, "request.enqueued", trace.WithAttributes(
		attribute.String(RequestIDKey, requestID),
		attribute.String(ExternalKeyKey, externalKey),
		attribute.String(RequestTypeKey, requestType),
	))
	span.End()
}

func (e *Emitter) StatusChanged(ctx context.Context, requestID, externalKey, status string) {
	_, span := e.tracer.Start(ctx, "request.status_changed", trace.WithAttributes(
		attribute.String(RequestIDKey, requestID),
		attribute.String(ExternalKeyKey, externalKey),
		attribute.String(StatusKey, status),
	))
	span.End()
}

func (e *Emitter) PollCycleCompleted(ctx context.Context, pendingCount, resolvedCount int) {
	_, span := e.tracer.Start(ctx, "reconciliation.poll_completed", trace.WithAttributes(
		attribute.Int(PendingCountKey, pendingCount),
		attribute.Int(ResolvedCount, resolvedCount),
	))
	span.End()
}

func (e *Emitter) FollowUpScheduled(ctx context.Context, externalKey string, err error) {
	attrs := []attribute.KeyValue{
		attribute.String(ExternalKeyKey, externalKey),
		attribute.Bool("conductor.followup.success", err == nil),
	}

	_, span := e.tracer.Start(ctx, "request.followup_scheduled", trace.WithAttributes(attrs...))

	if err != nil {
		span.RecordError(err)
	}

	span.End()
}

func (e *Emitter) EventDispatched(ctx context.Context, externalKey, status string) {
	_, span := e.tracer.Start(ctx, "request.event_dispatched", trace.WithAttributes(
		attribute.String(ExternalKeyKey, externalKey),
		attribute.String(StatusKey, status),
	))
	span.End()
}
