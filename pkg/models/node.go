package models

import "time"

// NodeKind is the dispatch type of a workflow node. It is immutable once set.
type NodeKind string

const (
	NodeKindTask     NodeKind = "task"     // Invokes a registered worker
	NodeKindApproval NodeKind = "approval" // Stalls the workflow until authorized
	NodeKindParallel NodeKind = "parallel" // Concurrent fan-out over children, order-preserving join
	NodeKindBarrier  NodeKind = "barrier"  // Sequential children, single aggregate result
)

// NodeSpec describes one node of a workflow.
//
// Task nodes reference a registered worker by ID plus its arguments.
// Approval nodes carry the reason shown to the approver. Parallel and
// barrier nodes carry child specs.
type NodeSpec struct {
	ID       string         `json:"id"       validate:"required"`
	Kind     NodeKind       `json:"kind"     validate:"required"`
	WorkerID string         `json:"worker_id,omitempty"`
	Args     map[string]any `json:"args,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Children []*NodeSpec    `json:"children,omitempty"`
}

// NodeResultStatus defines the possible outcomes of a node execution.
type NodeResultStatus string

const (
	NodeResultOK      NodeResultStatus = "ok"
	NodeResultError   NodeResultStatus = "error"
	NodeResultPaused  NodeResultStatus = "paused"
	NodeResultUnknown NodeResultStatus = "unknown"
)

// NodeResult represents the result of a single node execution.
type NodeResult struct {
	NodeID    string           `json:"node_id"`
	Kind      NodeKind         `json:"kind"`
	Status    NodeResultStatus `json:"status"`
	Data      map[string]any   `json:"data,omitempty"`
	Error     string           `json:"error,omitempty"`
	Children  []*NodeResult    `json:"children,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
