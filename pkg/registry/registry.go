// Package registry maps worker IDs to their implementations. The registry is
// populated explicitly at startup; there is no runtime reflection and no
// plugin loading.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dukex/conductor/pkg/protocol"
)

type registeredWorker struct {
	worker protocol.Worker
	schema *gojsonschema.Schema
}

// Registry resolves worker IDs referenced by task nodes.
type Registry struct {
	logger  *slog.Logger
	workers map[string]registeredWorker
}

// NewRegistry creates an empty worker registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:  logger,
		workers: make(map[string]registeredWorker),
	}
}

// RegisterWorker binds a worker ID to its implementation. Registering the
// same ID twice replaces the previous binding.
func (r *Registry) RegisterWorker(workerID string, worker protocol.Worker) {
	r.workers[workerID] = registeredWorker{worker: worker}
}

// RegisterWorkerWithSchema additionally attaches a JSON schema that task args
// are validated against before dispatch.
func (r *Registry) RegisterWorkerWithSchema(workerID string, worker protocol.Worker, schema map[string]any) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return fmt.Errorf("invalid schema for worker '%s': %w", workerID, err)
	}

	r.workers[workerID] = registeredWorker{worker: worker, schema: compiled}

	return nil
}

// Worker resolves a worker ID, validating args against the worker's schema
// when one was registered.
func (r *Registry) Worker(workerID string, args map[string]any) (protocol.Worker, error) {
	registered, ok := r.workers[workerID]
	if !ok {
		return nil, fmt.Errorf("worker '%s' not registered", workerID)
	}

	if registered.schema != nil {
		result, err := registered.schema.Validate(gojsonschema.NewGoLoader(args))
		if err != nil {
			return nil, fmt.Errorf("failed to validate args for worker '%s': %w", workerID, err)
		}

		if !result.Valid() {
			return nil, fmt.Errorf("invalid args for worker '%s': %v", workerID, result.Errors())
		}
	}

	return registered.worker, nil
}

// WorkerIDs returns the registered worker IDs.
func (r *Registry) WorkerIDs() []string {
	ids := make([]string, 0, len(r.workers))
	for id := range r.workers {
		ids = append(ids, id)
	}

	return ids
}
