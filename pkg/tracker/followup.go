package tracker

import (
	"context"
	"log/slog"

	"github.com/dukex/conductor/pkg/events"
)

// NewLogScheduler returns a scheduler that records resolved requests in the
// process log. It is the default for deployments with no dependent work
// system attached; the follow-up telemetry still fires for every resolved
// request.
func NewLogScheduler(logger *slog.Logger) FollowUpScheduler {
	logger = logger.With("module", "follow_up")

	return FollowUpFunc(func(ctx context.Context, event events.NotificationEvent) error {
		logger.InfoContext(ctx, "Resolved request ready for follow-up",
			"request_id", event.ID,
			"external_key", event.ExternalKey,
			"request_type", event.RequestType,
		)

		return nil
	})
}
