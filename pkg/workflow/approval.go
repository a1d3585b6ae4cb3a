package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/conductor/pkg/approval"
	"github.com/dukex/conductor/pkg/models"
)

// ErrNoGate is returned when an approval operation is invoked on an executor
// built without a gate.
var ErrNoGate = errors.New("no approval gate configured")

// ErrTokenWorkflowMismatch is returned when an otherwise valid token was
// issued for a different workflow. The token is still consumed.
var ErrTokenWorkflowMismatch = errors.New("approval token was issued for a different workflow")

// RequestApproval issues a single-use approval token for a paused workflow.
// The workflow must exist; issuing for a non-paused workflow is allowed so
// operators can pre-approve before the walk reaches the gate.
func (e *Executor) RequestApproval(ctx context.Context, workflowID, reason string) (*approval.Token, error) {
	if e.gate == nil {
		return nil, ErrNoGate
	}

	workflow, err := e.repository.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	token, err := e.gate.Issue(ctx, workflow.ID, reason, e.approvalTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue approval token: %w", err)
	}

	e.logger.InfoContext(ctx, "Approval token issued",
		"workflow_id", workflow.ID, "reason", reason, "expires_at", token.ExpiresAt)

	return token, nil
}

// ApplyWithApproval consumes the token and re-executes the workflow with the
// approval granted, so the previously paused approval node passes and the
// walk continues past it. Authorization is strictly single use: the gate
// consumes the token before any check, so a mismatched token cannot be
// retried against another workflow.
func (e *Executor) ApplyWithApproval(ctx context.Context, workflowID, tokenValue string, opts Options) (*models.ExecutionSummary, error) {
	if e.gate == nil {
		return nil, ErrNoGate
	}

	workflow, err := e.repository.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	token, err := e.gate.Authorize(ctx, tokenValue)
	if err != nil {
		return nil, fmt.Errorf("approval rejected: %w", err)
	}

	if token.WorkflowID != workflow.ID {
		return nil, ErrTokenWorkflowMismatch
	}

	e.logger.InfoContext(ctx, "Approval granted, resuming workflow",
		"workflow_id", workflow.ID, "reason", token.Reason)

	opts.approvalGranted = true

	return e.ExecuteMap(ctx, workflow, opts)
}
