package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dukex/conductor/pkg/persistence"
	"github.com/dukex/conductor/pkg/registry"
	"github.com/dukex/conductor/pkg/tracker"
	"github.com/dukex/conductor/pkg/workflow"
)

const (
	defaultDueLimit   = 100
	defaultSinceHours = 1
)

// Handlers exposes the request lifecycle and workflow execution over HTTP.
type Handlers struct {
	tracker     *tracker.Tracker
	workflows   *workflow.Repository
	executor    *workflow.Executor
	registry    *registry.Registry
	persistence persistence.Persistence
	validator   *validator.Validate
}

func NewHandlers(
	trk *tracker.Tracker,
	workflows *workflow.Repository,
	executor *workflow.Executor,
	reg *registry.Registry,
	pers persistence.Persistence,
	validate *validator.Validate,
) *Handlers {
	return &Handlers{
		tracker:     trk,
		workflows:   workflows,
		executor:    executor,
		registry:    reg,
		persistence: pers,
		validator:   validate,
	}
}

func (h *Handlers) EnqueueRequest(c fiber.Ctx) error {
	var body EnqueueRequestBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(body); err != nil {
		return handleError(c, err)
	}

	request, err := h.tracker.Enqueue(c.Context(), tracker.EnqueueAttrs{
		RequestType:     body.RequestType,
		ExternalKey:     body.ExternalKey,
		Payload:         body.Payload,
		Source:          body.Source,
		SourceReference: body.SourceReference,
		Metadata:        body.Metadata,
	})
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(request)
}

func (h *Handlers) GetRequest(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Request ID is required")
	}

	request, err := h.tracker.GetByID(c.Context(), id)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(request)
}

func (h *Handlers) GetDueRequests(c fiber.Ctx) error {
	limit := defaultDueLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			return badRequest(c, "Invalid limit")
		}

		limit = parsed
	}

	due, err := h.tracker.DueForProcessing(c.Context(), limit)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{"requests": due, "count": len(due)})
}

func (h *Handlers) GetResolvedRequests(c fiber.Ctx) error {
	since := time.Now().Add(-defaultSinceHours * time.Hour)

	if sinceStr := c.Query("since"); sinceStr != "" {
		parsed, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return badRequest(c, "Invalid since timestamp, expected RFC3339")
		}

		since = parsed
	}

	resolved, err := h.tracker.RecentlyResolved(c.Context(), since)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{"requests": resolved, "count": len(resolved)})
}

func (h *Handlers) ProgressRequest(c fiber.Ctx) error {
	request, err := h.tracker.MarkInProgress(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(request)
}

func (h *Handlers) ResolveRequest(c fiber.Ctx) error {
	var body ResolveRequestBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	request, err := h.tracker.MarkResolved(c.Context(), c.Params("id"), body.ResolutionPayload)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(request)
}

func (h *Handlers) FailRequest(c fiber.Ctx) error {
	var body FailRequestBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(body); err != nil {
		return handleError(c, err)
	}

	opts := tracker.FailOptions{Error: body.Error}

	if body.RetryAt != "" {
		retryAt, err := time.Parse(time.RFC3339, body.RetryAt)
		if err != nil {
			return badRequest(c, "Invalid retry_at timestamp, expected RFC3339")
		}

		opts.RetryAt = retryAt
	}

	request, err := h.tracker.MarkFailed(c.Context(), c.Params("id"), opts)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(request)
}

func (h *Handlers) CreateWorkflow(c fiber.Ctx) error {
	var body CreateWorkflowBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(body); err != nil {
		return handleError(c, err)
	}

	created, err := h.workflows.Create(c.Context(), workflow.CreateAttrs{
		Name:     body.Name,
		Type:     body.Type,
		Payload:  body.Payload,
		Nodes:    body.Nodes,
		Metadata: body.Metadata,
	})
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflows.All(c.Context())
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows, "count": len(workflows)})
}

func (h *Handlers) GetWorkflow(c fiber.Ctx) error {
	found, err := h.workflows.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(found)
}

func (h *Handlers) ExecuteWorkflow(c fiber.Ctx) error {
	var body ExecuteWorkflowBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	opts := workflow.DefaultOptions()
	if body.DryRun != nil {
		opts.DryRun = *body.DryRun
	}

	summary, err := h.executor.Execute(c.Context(), c.Params("id"), opts)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(summary)
}

func (h *Handlers) RequestApproval(c fiber.Ctx) error {
	var body RequestApprovalBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(body); err != nil {
		return handleError(c, err)
	}

	token, err := h.executor.RequestApproval(c.Context(), c.Params("id"), body.Reason)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(token)
}

func (h *Handlers) ApplyApproval(c fiber.Ctx) error {
	var body ApplyApprovalBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(body); err != nil {
		return handleError(c, err)
	}

	opts := workflow.DefaultOptions()
	if body.DryRun != nil {
		opts.DryRun = *body.DryRun
	}

	summary, err := h.executor.ApplyWithApproval(c.Context(), c.Params("id"), body.Token, opts)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(summary)
}

func (h *Handlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"workers": h.registry.WorkerIDs(),
		"time":    time.Now().UTC(),
	})
}
