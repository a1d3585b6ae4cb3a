package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/conductor/pkg/models"
)

// WorkflowRepository handles workflow-related database operations. The node
// tree is stored as a JSONB document: nodes are only ever read and written
// as part of their workflow, so there is nothing to normalize.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
	id
  , name
  , type
  , status
  , payload
  , nodes
  , metadata
  , created_at
  , updated_at
`

// GetByID returns the workflow, or nil when no row matches.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	workflow, err := r.scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

// Save upserts the workflow row keyed by ID.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	payload, err := json.Marshal(workflow.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode workflow payload: %w", err)
	}

	nodes, err := json.Marshal(workflow.Nodes)
	if err != nil {
		return fmt.Errorf("failed to encode workflow nodes: %w", err)
	}

	metadata, err := json.Marshal(workflow.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode workflow metadata: %w", err)
	}

	query := `
		INSERT INTO workflows (id, name, type, status, payload, nodes, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , type = EXCLUDED.type
		  , status = EXCLUDED.status
		  , payload = EXCLUDED.payload
		  , nodes = EXCLUDED.nodes
		  , metadata = EXCLUDED.metadata
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Type,
		workflow.Status,
		payload,
		nodes,
		metadata,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	return nil
}

// All returns every workflow, newest first.
func (r *WorkflowRepository) All(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *WorkflowRepository) scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow           models.Workflow
		payload            []byte
		nodes              []byte
		metadata           []byte
		createdAt, updated time.Time
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Type,
		&workflow.Status,
		&payload,
		&nodes,
		&metadata,
		&createdAt,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	workflow.CreatedAt = createdAt
	workflow.UpdatedAt = updated

	if len(payload) > 0 {
		err = json.Unmarshal(payload, &workflow.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode workflow payload: %w", err)
		}
	}

	if len(nodes) > 0 {
		err = json.Unmarshal(nodes, &workflow.Nodes)
		if err != nil {
			return nil, fmt.Errorf("failed to decode workflow nodes: %w", err)
		}
	}

	if len(metadata) > 0 {
		err = json.Unmarshal(metadata, &workflow.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to decode workflow metadata: %w", err)
		}
	}

	return &workflow, nil
}
