package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukex/conductor/pkg/approval"
	"github.com/dukex/conductor/pkg/models"
	"github.com/dukex/conductor/pkg/protocol"
	"github.com/dukex/conductor/pkg/registry"
	"github.com/dukex/conductor/pkg/resilience"
)

// Options control one execution call.
type Options struct {
	// DryRun is forwarded to task workers unchanged; workers decide whether
	// to perform side effects. DefaultOptions enables it.
	DryRun bool

	// ChildTimeout bounds each child of a parallel or barrier node.
	ChildTimeout time.Duration

	// MaxParallel bounds concurrent children of a parallel node.
	MaxParallel int

	// approvalGranted is set internally by ApplyWithApproval so approval
	// nodes pass instead of stalling the walk. External callers cannot set
	// it; authorization goes through the gate.
	approvalGranted bool
}

// DefaultOptions returns the execution defaults: dry-run on.
func DefaultOptions() Options {
	return Options{
		DryRun:       true,
		ChildTimeout: 30 * time.Second,
		MaxParallel:  8,
	}
}

// Executor walks a workflow's node graph. Top-level nodes run sequentially;
// dispatch is by node kind. Wrapping workers with retry or a circuit breaker
// is the caller's responsibility at registration time, not the executor's.
type Executor struct {
	repository  *Repository
	registry    *registry.Registry
	gate        approval.Gate
	logger      *slog.Logger
	approvalTTL time.Duration
}

// NewExecutor creates an executor. gate may be nil when the deployment has
// no approval nodes.
func NewExecutor(repository *Repository, reg *registry.Registry, gate approval.Gate, logger *slog.Logger) *Executor {
	return &Executor{
		repository:  repository,
		registry:    reg,
		gate:        gate,
		logger:      logger.With("module", "workflow_executor"),
		approvalTTL: time.Hour,
	}
}

// Execute loads the workflow and walks it. The only top-level error is
// "workflow not found"; every other failure is encoded inside the summary's
// node results, so callers must inspect node-level status to detect partial
// failure.
func (e *Executor) Execute(ctx context.Context, workflowID string, opts Options) (*models.ExecutionSummary, error) {
	workflow, err := e.repository.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return e.ExecuteMap(ctx, workflow, opts)
}

// ExecuteMap walks an already-loaded workflow.
func (e *Executor) ExecuteMap(ctx context.Context, workflow *models.Workflow, opts Options) (*models.ExecutionSummary, error) {
	opts = normalizeOptions(opts)

	logger := e.logger.With("workflow_id", workflow.ID, "dry_run", opts.DryRun)
	logger.InfoContext(ctx, "Starting workflow execution", "nodes", len(workflow.Nodes))

	err := e.repository.UpdateStatus(ctx, workflow, models.WorkflowStatusRunning)
	if err != nil {
		logger.WarnContext(ctx, "Failed to persist running status", "error", err)
	}

	results := make([]*models.NodeResult, 0, len(workflow.Nodes))
	paused := false
	aborted := false

	for index, node := range workflow.Nodes {
		if paused {
			// The walk stalled at an approval node. Remaining nodes still get
			// a placeholder entry so results always line up with the node list.
			results = append(results, &models.NodeResult{
				NodeID:    node.ID,
				Kind:      node.Kind,
				Status:    models.NodeResultPaused,
				Data:      map[string]any{"reason": "awaiting_approval"},
				Timestamp: time.Now().UTC(),
			})

			continue
		}

		if !aborted && ctx.Err() != nil {
			logger.WarnContext(ctx, "Workflow execution aborted", "position", index, "error", ctx.Err())

			aborted = true
		}

		if aborted {
			// The walk cannot continue; remaining nodes get an error entry so
			// results still line up with the node list.
			results = append(results, &models.NodeResult{
				NodeID:    node.ID,
				Kind:      node.Kind,
				Status:    models.NodeResultError,
				Error:     "execution aborted: " + ctx.Err().Error(),
				Timestamp: time.Now().UTC(),
			})

			continue
		}

		result := e.executeNode(ctx, logger, node, opts)
		results = append(results, result)

		if node.Kind == models.NodeKindApproval && result.Status == models.NodeResultPaused {
			logger.InfoContext(ctx, "Workflow paused awaiting approval", "node_id", node.ID, "position", index)

			paused = true
		}
	}

	finalStatus := models.WorkflowStatusExecuted

	switch {
	case aborted:
		finalStatus = models.WorkflowStatusFailed
	case paused:
		finalStatus = models.WorkflowStatusPaused
	}

	// The final status must land even when the walk was aborted by
	// cancellation.
	err = e.repository.UpdateStatus(context.WithoutCancel(ctx), workflow, finalStatus)
	if err != nil {
		logger.WarnContext(ctx, "Failed to persist final status", "error", err)
	}

	logger.InfoContext(ctx, "Workflow execution finished", "status", finalStatus)

	return &models.ExecutionSummary{
		WorkflowID: workflow.ID,
		DryRun:     opts.DryRun,
		NodeCount:  len(workflow.Nodes),
		Results:    results,
		Timestamp:  time.Now().UTC(),
	}, nil
}

func normalizeOptions(opts Options) Options {
	defaults := DefaultOptions()

	if opts.ChildTimeout <= 0 {
		opts.ChildTimeout = defaults.ChildTimeout
	}

	if opts.MaxParallel <= 0 {
		opts.MaxParallel = defaults.MaxParallel
	}

	return opts
}

func (e *Executor) executeNode(ctx context.Context, logger *slog.Logger, node *models.NodeSpec, opts Options) *models.NodeResult {
	switch node.Kind {
	case models.NodeKindTask:
		return e.executeTask(ctx, node, opts)
	case models.NodeKindApproval:
		return e.executeApproval(node, opts)
	case models.NodeKindParallel:
		return e.executeParallel(ctx, logger, node, opts)
	case models.NodeKindBarrier:
		return e.executeBarrier(ctx, logger, node, opts)
	default:
		logger.WarnContext(ctx, "Unknown node kind", "node_id", node.ID, "kind", node.Kind)

		return &models.NodeResult{
			NodeID:    node.ID,
			Kind:      node.Kind,
			Status:    models.NodeResultUnknown,
			Timestamp: time.Now().UTC(),
		}
	}
}

// executeTask invokes the bound worker. A panic, a missing worker, or a
// worker error all become an error result on this node only.
func (e *Executor) executeTask(ctx context.Context, node *models.NodeSpec, opts Options) (result *models.NodeResult) {
	result = &models.NodeResult{
		NodeID:    node.ID,
		Kind:      models.NodeKindTask,
		Timestamp: time.Now().UTC(),
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			result.Status = models.NodeResultError
			result.Error = fmt.Sprintf("exception: %v", recovered)
		}
	}()

	worker, err := e.registry.Worker(node.WorkerID, node.Args)
	if err != nil {
		result.Status = models.NodeResultError
		result.Error = err.Error()

		return result
	}

	data, err := worker.Execute(ctx, node.Args, protocol.Options{DryRun: opts.DryRun})
	if err != nil {
		result.Status = models.NodeResultError
		result.Error = err.Error()

		return result
	}

	result.Status = models.NodeResultOK
	result.Data = data

	return result
}

// executeApproval never executes work: without a granted approval the node
// yields paused and the top-level walk stalls until ApplyWithApproval.
func (e *Executor) executeApproval(node *models.NodeSpec, opts Options) *models.NodeResult {
	if opts.approvalGranted {
		return &models.NodeResult{
			NodeID:    node.ID,
			Kind:      models.NodeKindApproval,
			Status:    models.NodeResultOK,
			Data:      map[string]any{"approved": true, "reason": node.Reason},
			Timestamp: time.Now().UTC(),
		}
	}

	return &models.NodeResult{
		NodeID:    node.ID,
		Kind:      models.NodeKindApproval,
		Status:    models.NodeResultPaused,
		Data:      map[string]any{"requires_approval": true, "reason": node.Reason},
		Timestamp: time.Now().UTC(),
	}
}

// executeParallel fans out over children concurrently and joins, preserving
// child order in the aggregate. One failing child does not abort siblings.
// The fan-out is bounded by MaxParallel, and each child by ChildTimeout.
func (e *Executor) executeParallel(ctx context.Context, logger *slog.Logger, node *models.NodeSpec, opts Options) *models.NodeResult {
	children := make([]*models.NodeResult, len(node.Children))

	group := errgroup.Group{}
	group.SetLimit(opts.MaxParallel)

	for index, child := range node.Children {
		group.Go(func() error {
			children[index] = e.executeChild(ctx, logger, child, opts)

			// Failures live in the result slot; never abort siblings.
			return nil
		})
	}

	_ = group.Wait()

	return aggregate(node, models.NodeKindParallel, children)
}

// executeBarrier runs children one after another and only surfaces the
// aggregate once all have completed. Same result shape as parallel, without
// the concurrency; the asymmetry is intentional.
func (e *Executor) executeBarrier(ctx context.Context, logger *slog.Logger, node *models.NodeSpec, opts Options) *models.NodeResult {
	children := make([]*models.NodeResult, len(node.Children))

	for index, child := range node.Children {
		children[index] = e.executeChild(ctx, logger, child, opts)
	}

	return aggregate(node, models.NodeKindBarrier, children)
}

// executeChild runs one child under the per-child timeout. The timed-out
// child may keep running in the background; WithTimeout does not cancel it.
func (e *Executor) executeChild(ctx context.Context, logger *slog.Logger, child *models.NodeSpec, opts Options) *models.NodeResult {
	var result *models.NodeResult

	_, err := resilience.WithTimeout(ctx, opts.ChildTimeout, func(ctx context.Context) (map[string]any, error) {
		result = e.executeNode(ctx, logger, child, opts)

		return nil, nil
	}, nil)
	if err != nil {
		return &models.NodeResult{
			NodeID:    child.ID,
			Kind:      child.Kind,
			Status:    models.NodeResultError,
			Error:     err.Error(),
			Timestamp: time.Now().UTC(),
		}
	}

	return result
}

// aggregate folds child results into the parent node's result. The parent is
// ok only when every child is ok.
func aggregate(node *models.NodeSpec, kind models.NodeKind, children []*models.NodeResult) *models.NodeResult {
	status := models.NodeResultOK

	for _, child := range children {
		if child.Status != models.NodeResultOK {
			status = models.NodeResultError

			break
		}
	}

	return &models.NodeResult{
		NodeID:    node.ID,
		Kind:      kind,
		Status:    status,
		Children:  children,
		Timestamp: time.Now().UTC(),
	}
}
