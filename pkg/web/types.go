// Package web provides the HTTP handlers for the request and workflow APIs.
package web

import "github.com/dukex/conductor/pkg/models"

// EnqueueRequestBody is the request body for submitting a request ticket.
// ExternalKey is the idempotency key: re-submitting the same key resets the
// existing ticket instead of creating a duplicate.
type EnqueueRequestBody struct {
	RequestType     string         `json:"request_type"     validate:"required"`
	ExternalKey     string         `json:"external_key"     validate:"required"`
	Payload         map[string]any `json:"payload,omitempty"`
	Source          string         `json:"source,omitempty"`
	SourceReference string         `json:"source_reference,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// ResolveRequestBody carries the resolution data for a ticket.
type ResolveRequestBody struct {
	ResolutionPayload map[string]any `json:"resolution_payload,omitempty"`
}

// FailRequestBody records a failure. RetryAt schedules the ticket back into
// the due queue; omitted means due immediately.
type FailRequestBody struct {
	Error   string `json:"error"              validate:"required"`
	RetryAt string `json:"retry_at,omitempty"`
}

// CreateWorkflowBody is the request body for creating a workflow.
type CreateWorkflowBody struct {
	Name     string             `json:"name"     validate:"required,min=3"`
	Type     string             `json:"type"     validate:"required"`
	Payload  map[string]any     `json:"payload,omitempty"`
	Nodes    []*models.NodeSpec `json:"nodes"`
	Metadata map[string]any     `json:"metadata,omitempty"`
}

// ExecuteWorkflowBody controls one execution call. DryRun defaults to true;
// callers must opt in to side effects explicitly.
type ExecuteWorkflowBody struct {
	DryRun *bool `json:"dry_run,omitempty"`
}

// RequestApprovalBody carries the reason recorded on the issued token.
type RequestApprovalBody struct {
	Reason string `json:"reason" validate:"required"`
}

// ApplyApprovalBody resumes a paused workflow with a single-use token.
type ApplyApprovalBody struct {
	Token  string `json:"token" validate:"required"`
	DryRun *bool  `json:"dry_run,omitempty"`
}
