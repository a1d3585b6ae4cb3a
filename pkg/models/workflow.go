// Package models defines the core domain models for workflow and request coordination.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusPending  WorkflowStatus = "pending"  // Created, never executed
	WorkflowStatusRunning  WorkflowStatus = "running"  // Currently being walked by an executor
	WorkflowStatusPaused   WorkflowStatus = "paused"   // Stalled at an approval node
	WorkflowStatusExecuted WorkflowStatus = "executed" // Traversal finished (node results may still carry errors)
	WorkflowStatusFailed   WorkflowStatus = "failed"   // Traversal aborted, e.g. context cancelled mid-walk
)

// Workflow is a definition of multi-step background work. Nodes are walked
// sequentially in slice order; each node carries its own dispatch semantics.
type Workflow struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"   validate:"required,min=3"`
	Type      string         `json:"type"   validate:"required"`
	Status    WorkflowStatus `json:"status"`
	Payload   map[string]any `json:"payload,omitempty"`
	Nodes     []*NodeSpec    `json:"nodes"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ExecutionSummary is produced once per execution call. Results preserve
// top-level node order and always have one entry per node.
type ExecutionSummary struct {
	WorkflowID string        `json:"workflow_id"`
	DryRun     bool          `json:"dry_run"`
	NodeCount  int           `json:"node_count"`
	Results    []*NodeResult `json:"results"`
	Timestamp  time.Time     `json:"timestamp"`
}
