package cmd

import (
	"log/slog"

	"github.com/dukex/conductor/pkg/registry"
	"github.com/dukex/conductor/pkg/workers/httprequest"
	logworker "github.com/dukex/conductor/pkg/workers/log"
)

// NewRegistry creates the worker registry with the built-in workers bound.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	err := reg.RegisterWorkerWithSchema(httprequest.WorkerID, httprequest.NewWorker(logger), httprequest.Schema())
	if err != nil {
		panic(err)
	}

	reg.RegisterWorker(logworker.WorkerID, logworker.NewWorker(logger))

	return reg
}
