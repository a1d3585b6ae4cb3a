// Package logworker provides the built-in log worker, mostly useful for
// wiring checks and as a placeholder task in examples.
package logworker

import (
	"context"
	"log/slog"

	"github.com/dukex/conductor/pkg/protocol"
)

// WorkerID is the registry key for this worker.
const WorkerID = "log"

// Worker writes the node's message to the structured log and echoes it back.
type Worker struct {
	logger *slog.Logger
}

// NewWorker creates the log worker.
func NewWorker(logger *slog.Logger) *Worker {
	return &Worker{logger: logger.With("worker", WorkerID)}
}

func (w *Worker) Execute(ctx context.Context, args map[string]any, opts protocol.Options) (map[string]any, error) {
	message, _ := args["message"].(string)

	w.logger.InfoContext(ctx, "Log task executed", "message", message, "dry_run", opts.DryRun)

	return map[string]any{"message": message}, nil
}
