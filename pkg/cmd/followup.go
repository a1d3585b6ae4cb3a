package cmd

import (
	"log/slog"

	"github.com/dukex/conductor/pkg/tracker"
)

// NewFollowUpScheduler creates the follow-up scheduler for the given kind.
// "log" records resolved requests in the process log, "none" disables
// follow-up scheduling entirely.
func NewFollowUpScheduler(kind string, logger *slog.Logger) tracker.FollowUpScheduler {
	switch kind {
	case "log", "":
		return tracker.NewLogScheduler(logger)
	case "none":
		return nil
	default:
		panic("Unsupported follow-up scheduler: " + kind)
	}
}
