package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/conductor/pkg/approval"
	"github.com/dukex/conductor/pkg/models"
	"github.com/dukex/conductor/pkg/persistence/file"
	"github.com/dukex/conductor/pkg/registry"
	"github.com/dukex/conductor/pkg/telemetry"
	"github.com/dukex/conductor/pkg/tracker"
	"github.com/dukex/conductor/pkg/web"
	"github.com/dukex/conductor/pkg/workflow"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	store := file.NewPersistence(t.TempDir())

	trk := tracker.NewTracker(store.RequestRepository(), nil, telemetry.NewNoopEmitter(), logger, nil)
	workflows := workflow.NewRepository(store.WorkflowRepository())
	reg := registry.NewRegistry(logger)
	executor := workflow.NewExecutor(workflows, reg, approval.NewMemoryGate(), logger)
	validate := validator.New(validator.WithRequiredStructEnabled())

	handlers := web.NewHandlers(trk, workflows, executor, reg, store, validate)

	app := fiber.New()

	r := app.Group("/requests")
	r.Post("/", handlers.EnqueueRequest)
	r.Get("/due", handlers.GetDueRequests)
	r.Get("/resolved", handlers.GetResolvedRequests)
	r.Get("/:id", handlers.GetRequest)
	r.Post("/:id/progress", handlers.ProgressRequest)
	r.Post("/:id/resolve", handlers.ResolveRequest)
	r.Post("/:id/fail", handlers.FailRequest)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Post("/:id/approval", handlers.RequestApproval)
	w.Post("/:id/apply", handlers.ApplyApproval)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func TestEnqueueRequest(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/requests", web.EnqueueRequestBody{
		RequestType: "provisioning",
		ExternalKey: "order-1",
		Payload:     map[string]any{"plan": "basic"},
	})

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Request

	require.NoError(t, json.Unmarshal(body, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.RequestStatusPending, created.Status)
	assert.Equal(t, "order-1", created.ExternalKey)
}

func TestEnqueueRequest_ValidationError(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/requests", web.EnqueueRequestBody{
		RequestType: "provisioning",
	})

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "validation_error")
}

func TestEnqueueRequest_IdempotentResubmission(t *testing.T) {
	app := setupTestApp(t)

	_, first := doJSON(t, app, http.MethodPost, "/requests", web.EnqueueRequestBody{
		RequestType: "provisioning",
		ExternalKey: "order-2",
	})

	_, second := doJSON(t, app, http.MethodPost, "/requests", web.EnqueueRequestBody{
		RequestType: "provisioning",
		ExternalKey: "order-2",
	})

	var a, b models.Request

	require.NoError(t, json.Unmarshal(first, &a))
	require.NoError(t, json.Unmarshal(second, &b))
	assert.Equal(t, a.ID, b.ID)
}

func TestRequestLifecycleEndpoints(t *testing.T) {
	app := setupTestApp(t)

	_, body := doJSON(t, app, http.MethodPost, "/requests", web.EnqueueRequestBody{
		RequestType: "provisioning",
		ExternalKey: "order-3",
	})

	var created models.Request

	require.NoError(t, json.Unmarshal(body, &created))

	resp, body := doJSON(t, app, http.MethodGet, "/requests/due", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), created.ID)

	resp, _ = doJSON(t, app, http.MethodPost, "/requests/"+created.ID+"/progress", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/requests/"+created.ID+"/resolve", web.ResolveRequestBody{
		ResolutionPayload: map[string]any{"instance": "i-3"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var resolved models.Request

	require.NoError(t, json.Unmarshal(body, &resolved))
	assert.Equal(t, models.RequestStatusResolved, resolved.Status)

	resp, body = doJSON(t, app, http.MethodGet, "/requests/resolved", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), created.ID)
}

func TestFailRequest(t *testing.T) {
	app := setupTestApp(t)

	_, body := doJSON(t, app, http.MethodPost, "/requests", web.EnqueueRequestBody{
		RequestType: "provisioning",
		ExternalKey: "order-4",
	})

	var created models.Request

	require.NoError(t, json.Unmarshal(body, &created))

	resp, body := doJSON(t, app, http.MethodPost, "/requests/"+created.ID+"/fail", web.FailRequestBody{
		Error:   "upstream 503",
		RetryAt: "2030-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var failed models.Request

	require.NoError(t, json.Unmarshal(body, &failed))
	assert.Equal(t, models.RequestStatusFailed, failed.Status)
	assert.Equal(t, "upstream 503", failed.LastError)
}

func TestGetRequest_NotFound(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/requests/req-404", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "not_found")
}

func TestWorkflowEndpoints(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", web.CreateWorkflowBody{
		Name: "tenant provisioning",
		Type: "provisioning",
		Nodes: []*models.NodeSpec{
			{ID: "n1", Kind: models.NodeKindApproval, Reason: "production"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Workflow

	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.ID)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute", web.ExecuteWorkflowBody{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary models.ExecutionSummary

	require.NoError(t, json.Unmarshal(body, &summary))
	assert.True(t, summary.DryRun)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, models.NodeResultPaused, summary.Results[0].Status)

	resp, body = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/approval", web.RequestApprovalBody{
		Reason: "reviewed",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var token approval.Token

	require.NoError(t, json.Unmarshal(body, &token))
	require.NotEmpty(t, token.Value)

	resp, body = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/apply", web.ApplyApprovalBody{
		Token: token.Value,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, json.Unmarshal(body, &summary))
	require.Len(t, summary.Results, 1)
	assert.Equal(t, models.NodeResultOK, summary.Results[0].Status)

	// The consumed token cannot authorize a second resume.
	resp, _ = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/apply", web.ApplyApprovalBody{
		Token: token.Value,
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestExecuteWorkflow_NotFound(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/wf-404/execute", web.ExecuteWorkflowBody{})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "not_found")
}

func TestHealthCheck(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")
}
