// Package httprequest provides the built-in HTTP request worker for task nodes.
package httprequest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/conductor/pkg/protocol"
	"github.com/dukex/conductor/pkg/resilience"
)

// WorkerID is the registry key for this worker.
const WorkerID = "http_request"

const defaultTimeoutSeconds = 30

// Schema describes the args accepted by the worker. The registry validates
// task args against it before dispatch.
func Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"url"},
		"properties": map[string]any{
			"url":     map[string]any{"type": "string", "minLength": 1},
			"method":  map[string]any{"type": "string"},
			"body":    map[string]any{"type": "string"},
			"headers": map[string]any{"type": "object"},
			"retries": map[string]any{"type": "number", "minimum": 0},
		},
	}
}

// Worker performs an HTTP request with the shared retry policy. In dry-run
// mode it returns a preview of the request without touching the network.
type Worker struct {
	client *http.Client
	logger *slog.Logger
}

// NewWorker creates the HTTP request worker.
func NewWorker(logger *slog.Logger) *Worker {
	return &Worker{
		client: &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
		logger: logger.With("worker", WorkerID),
	}
}

func (w *Worker) Execute(ctx context.Context, args map[string]any, opts protocol.Options) (map[string]any, error) {
	url, _ := args["url"].(string)

	method, _ := args["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	method = strings.ToUpper(method)
	body, _ := args["body"].(string)

	if opts.DryRun {
		w.logger.InfoContext(ctx, "Dry run, skipping HTTP request", "method", method, "url", url)

		return map[string]any{
			"dry_run": true,
			"method":  method,
			"url":     url,
		}, nil
	}

	policy := resilience.DefaultRetryPolicy()
	if retries, ok := args["retries"].(float64); ok {
		policy.MaxRetries = int(retries) + 1
	}

	var result map[string]any

	err := resilience.WithRetry(ctx, policy, func(ctx context.Context) error {
		request, err := http.NewRequestWithContext(ctx, method, url, strings.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}

		applyHeaders(request, args)

		response, err := w.client.Do(request)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer response.Body.Close()

		if response.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("server returned status %d", response.StatusCode)
		}

		result, err = decodeResponse(response)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func applyHeaders(request *http.Request, args map[string]any) {
	headers, ok := args["headers"].(map[string]any)
	if !ok {
		return
	}

	for key, value := range headers {
		if str, ok := value.(string); ok {
			request.Header.Set(key, str)
		}
	}
}

func decodeResponse(response *http.Response) (map[string]any, error) {
	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	result := map[string]any{
		"status_code": response.StatusCode,
	}

	var decoded any
	if json.Unmarshal(raw, &decoded) == nil {
		result["body"] = decoded
	} else {
		result["body"] = string(raw)
	}

	return result, nil
}
