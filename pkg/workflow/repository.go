// Package workflow provides the workflow store and the node-graph executor.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dukex/conductor/pkg/models"
	"github.com/dukex/conductor/pkg/persistence"
)

// Repository stores workflow definitions. Only the executor mutates them
// after creation; workflows are never deleted here.
type Repository struct {
	workflows persistence.WorkflowRepository
	validate  *validator.Validate
}

// NewRepository creates a workflow repository.
func NewRepository(workflows persistence.WorkflowRepository) *Repository {
	return &Repository{
		workflows: workflows,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// CreateAttrs are the caller-supplied fields of a new workflow.
type CreateAttrs struct {
	Name     string `validate:"required,min=3"`
	Type     string `validate:"required"`
	Payload  map[string]any
	Nodes    []*models.NodeSpec
	Metadata map[string]any
}

// Create persists a new workflow with a generated ID and pending status.
func (r *Repository) Create(ctx context.Context, attrs CreateAttrs) (*models.Workflow, error) {
	err := r.validate.Struct(attrs)
	if err != nil {
		return nil, fmt.Errorf("invalid workflow attributes: %w", err)
	}

	now := time.Now().UTC()

	workflow := &models.Workflow{
		ID:        uuid.New().String(),
		Name:      attrs.Name,
		Type:      attrs.Type,
		Status:    models.WorkflowStatusPending,
		Payload:   attrs.Payload,
		Nodes:     attrs.Nodes,
		Metadata:  attrs.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = r.workflows.Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// FetchByID returns the workflow or ErrWorkflowNotFound.
func (r *Repository) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := r.workflows.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}

	if workflow == nil {
		return nil, fmt.Errorf("workflow %s: %w", id, persistence.ErrWorkflowNotFound)
	}

	return workflow, nil
}

// All returns every stored workflow.
func (r *Repository) All(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := r.workflows.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// UpdateStatus persists a status transition on the workflow.
func (r *Repository) UpdateStatus(ctx context.Context, workflow *models.Workflow, status models.WorkflowStatus) error {
	workflow.Status = status
	workflow.UpdatedAt = time.Now().UTC()

	err := r.workflows.Save(ctx, workflow)
	if err != nil {
		return fmt.Errorf("failed to update workflow %s status: %w", workflow.ID, err)
	}

	return nil
}
