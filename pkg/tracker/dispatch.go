package tracker

import (
	"context"

	"github.com/dukex/conductor/pkg/events"
	"github.com/dukex/conductor/pkg/models"
)

// HandleNotification decodes a raw bus payload and dispatches it. Decode
// failures are logged and dropped; the listener must never crash on a bad
// payload, the poll sweep is the safety net for anything lost this way.
func (t *Tracker) HandleNotification(ctx context.Context, payload []byte) {
	event, err := events.Decode(payload)
	if err != nil {
		t.logger.WarnContext(ctx, "Dropping undecodable notification", "error", err)

		return
	}

	t.DispatchEvent(ctx, event)
}

// DispatchEvent branches on the event's status. Resolved events trigger
// follow-up scheduling, failed events are logged for alerting, and every
// branch, including the default no-op, emits telemetry.
func (t *Tracker) DispatchEvent(ctx context.Context, event events.NotificationEvent) {
	t.emitter.EventDispatched(ctx, event.ExternalKey, string(event.Status))

	switch event.Status {
	case models.RequestStatusResolved:
		t.scheduleFollowUp(ctx, event)
	case models.RequestStatusFailed:
		t.logger.ErrorContext(ctx, "Request failed",
			"request_id", event.ID,
			"external_key", event.ExternalKey,
			"request_type", event.RequestType,
		)
	case models.RequestStatusPending, models.RequestStatusInProgress:
		fallthrough
	default:
		t.logger.DebugContext(ctx, "No dispatch action for status",
			"external_key", event.ExternalKey, "status", event.Status)
	}
}

func (t *Tracker) scheduleFollowUp(ctx context.Context, event events.NotificationEvent) {
	if t.followUp == nil {
		return
	}

	err := t.followUp.Schedule(ctx, event)

	t.emitter.FollowUpScheduled(ctx, event.ExternalKey, err)

	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to schedule follow-up work",
			"error", err, "external_key", event.ExternalKey)

		return
	}

	t.logger.InfoContext(ctx, "Follow-up work scheduled", "external_key", event.ExternalKey)
}
