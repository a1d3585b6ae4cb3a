// Package protocol defines the contracts between the workflow executor and
// pluggable task workers.
package protocol

import "context"

// Worker executes the business logic of a task node.
//
// Options.DryRun is a pass-through contract: the executor forwards the flag
// unchanged and the worker decides whether to perform side effects. A worker
// that panics, or returns both a nil result and a nil error, is normalized
// by the executor to an error result; siblings are unaffected.
type Worker interface {
	// Execute runs the work with the node's args and the execution options.
	Execute(ctx context.Context, args map[string]any, opts Options) (map[string]any, error)
}

// WorkerFunc adapts a function to the Worker interface.
type WorkerFunc func(ctx context.Context, args map[string]any, opts Options) (map[string]any, error)

func (f WorkerFunc) Execute(ctx context.Context, args map[string]any, opts Options) (map[string]any, error) {
	return f(ctx, args, opts)
}

// Options carries per-execution settings through to workers.
type Options struct {
	DryRun bool
}
