package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/dukex/conductor/pkg/models"
)

// RequestRepository stores request tickets as one JSON file per ticket,
// named by ticket ID. External-key lookups scan the directory; acceptable
// for the dev/test data volumes this backend targets.
type RequestRepository struct {
	root string
	mu   sync.RWMutex
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(root string) *RequestRepository {
	return &RequestRepository{root: root}
}

func (rr *RequestRepository) dir() string {
	return path.Join(rr.root, "requests")
}

func (rr *RequestRepository) filePath(id string) string {
	return path.Join(rr.dir(), id+".json")
}

// Upsert inserts or replaces the ticket keyed by external_key. The lock makes
// the read-modify-write atomic per process.
func (rr *RequestRepository) Upsert(_ context.Context, request *models.Request) (*models.Request, error) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	existing, err := rr.findByExternalKey(request.ExternalKey)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		request.ID = existing.ID
		request.CreatedAt = existing.CreatedAt
	}

	err = rr.write(request)
	if err != nil {
		return nil, err
	}

	return request, nil
}

// GetByID returns the ticket, or nil when the file does not exist.
func (rr *RequestRepository) GetByID(_ context.Context, id string) (*models.Request, error) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	return rr.read(id)
}

// GetByExternalKey returns the ticket with the given key, or nil.
func (rr *RequestRepository) GetByExternalKey(_ context.Context, externalKey string) (*models.Request, error) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	return rr.findByExternalKey(externalKey)
}

// Save persists a transition on an existing ticket.
func (rr *RequestRepository) Save(_ context.Context, request *models.Request) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	return rr.write(request)
}

// DueForProcessing returns pending/failed tickets whose retry_at has passed,
// FIFO by creation time. No cross-process locking: two concurrent pollers on
// the same directory can select the same ticket, so deployments run a single
// poller against file persistence.
func (rr *RequestRepository) DueForProcessing(_ context.Context, limit int) ([]*models.Request, error) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	all, err := rr.all()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	due := make([]*models.Request, 0)

	for _, request := range all {
		if request.Status != models.RequestStatusPending && request.Status != models.RequestStatusFailed {
			continue
		}

		if request.RetryAt.After(now) {
			continue
		}

		due = append(due, request)
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

// RecentlyResolved returns resolved tickets updated at or after since, oldest first.
func (rr *RequestRepository) RecentlyResolved(_ context.Context, since time.Time) ([]*models.Request, error) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	all, err := rr.all()
	if err != nil {
		return nil, err
	}

	resolved := make([]*models.Request, 0)

	for _, request := range all {
		if request.Status != models.RequestStatusResolved {
			continue
		}

		if request.UpdatedAt.Before(since) {
			continue
		}

		resolved = append(resolved, request)
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].UpdatedAt.Before(resolved[j].UpdatedAt)
	})

	return resolved, nil
}

func (rr *RequestRepository) read(id string) (*models.Request, error) {
	data, err := os.ReadFile(rr.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read request %s: %w", id, err)
	}

	var request models.Request

	err = json.Unmarshal(data, &request)
	if err != nil {
		return nil, fmt.Errorf("failed to decode request %s: %w", id, err)
	}

	return &request, nil
}

func (rr *RequestRepository) write(request *models.Request) error {
	err := os.MkdirAll(rr.dir(), 0o755)
	if err != nil {
		return fmt.Errorf("failed to create requests directory: %w", err)
	}

	data, err := json.MarshalIndent(request, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode request %s: %w", request.ID, err)
	}

	err = os.WriteFile(rr.filePath(request.ID), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write request %s: %w", request.ID, err)
	}

	return nil
}

func (rr *RequestRepository) all() ([]*models.Request, error) {
	root := os.DirFS(rr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list request files: %w", err)
	}

	requests := make([]*models.Request, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		request, err := rr.read(file[:len(file)-5])
		if err != nil {
			return nil, err
		}

		if request != nil {
			requests = append(requests, request)
		}
	}

	return requests, nil
}

func (rr *RequestRepository) findByExternalKey(externalKey string) (*models.Request, error) {
	all, err := rr.all()
	if err != nil {
		return nil, err
	}

	for _, request := range all {
		if request.ExternalKey == externalKey {
			return request, nil
		}
	}

	return nil, nil
}
