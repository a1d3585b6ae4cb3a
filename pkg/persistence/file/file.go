// Package file provides file-based persistence for workflows and request
// tickets. Intended for development and tests; production deployments use
// the postgresql implementation.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/conductor/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
// A single process-wide lock serializes writes, so the single-poller
// assumption documented on DueForProcessing holds by construction here.
type Persistence struct {
	root         string
	workflowRepo *WorkflowRepository
	requestRepo  *RequestRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		workflowRepo: NewWorkflowRepository(cleanRoot),
		requestRepo:  NewRequestRepository(cleanRoot),
	}
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) RequestRepository() persistence.RequestRepository {
	return fp.requestRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file persistence there is none.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
