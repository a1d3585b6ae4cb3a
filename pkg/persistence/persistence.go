// Package persistence provides the storage abstraction for workflows and
// request tickets.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/conductor/pkg/models"
)

// Persistence is the storage backend contract. Implementations resolve
// concurrent writes at key granularity: per-key upsert is atomic and the
// last writer wins.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	RequestRepository() RequestRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions and their status.
type WorkflowRepository interface {
	// GetByID returns the workflow, or nil when no workflow has that ID.
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	All(ctx context.Context) ([]*models.Workflow, error)
}

// RequestRepository stores lifecycle request tickets. Tickets are never hard
// deleted.
type RequestRepository interface {
	// Upsert inserts or replaces the ticket keyed by external_key. When a
	// ticket with the same external key exists its ID and creation time are
	// preserved; everything else is taken from the argument. Returns the
	// stored ticket.
	Upsert(ctx context.Context, request *models.Request) (*models.Request, error)

	// GetByID returns the ticket, or nil when no ticket has that ID.
	GetByID(ctx context.Context, id string) (*models.Request, error)

	// GetByExternalKey returns the ticket, or nil when the key is unknown.
	GetByExternalKey(ctx context.Context, externalKey string) (*models.Request, error)

	// Save persists a status transition on an existing ticket.
	Save(ctx context.Context, request *models.Request) error

	// DueForProcessing returns tickets in pending or failed whose retry_at
	// has passed, FIFO by creation time, bounded by limit.
	DueForProcessing(ctx context.Context, limit int) ([]*models.Request, error)

	// RecentlyResolved returns resolved tickets updated at or after since,
	// oldest first. Used to replay transitions a missed notification would
	// otherwise lose.
	RecentlyResolved(ctx context.Context, since time.Time) ([]*models.Request, error)
}
