package httprequest

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/conductor/pkg/protocol"
	"github.com/dukex/conductor/pkg/resilience"
)

func newTestWorker() *Worker {
	return NewWorker(slog.New(slog.DiscardHandler))
}

func TestWorker_DryRunSkipsTheNetwork(t *testing.T) {
	hits := int32(0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	result, err := newTestWorker().Execute(context.Background(), map[string]any{
		"url": server.URL,
	}, protocol.Options{DryRun: true})

	require.NoError(t, err)
	assert.Equal(t, true, result["dry_run"])
	assert.Equal(t, http.MethodGet, result["method"])
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestWorker_PerformsRequestAndDecodesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "yes", r.Header.Get("X-Custom"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"created":true}`))
	}))
	defer server.Close()

	result, err := newTestWorker().Execute(context.Background(), map[string]any{
		"url":    server.URL,
		"method": "post",
		"body":   `{"name":"test"}`,
		"headers": map[string]any{
			"X-Custom": "yes",
		},
	}, protocol.Options{})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result["status_code"])
	assert.Equal(t, map[string]any{"created": true}, result["body"])
}

func TestWorker_RetriesServerErrors(t *testing.T) {
	hits := int32(0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	result, err := newTestWorker().Execute(context.Background(), map[string]any{
		"url":     server.URL,
		"retries": float64(3),
	}, protocol.Options{})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result["status_code"])
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestWorker_ExhaustedRetriesSurfaceAsMaxRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestWorker().Execute(context.Background(), map[string]any{
		"url":     server.URL,
		"retries": float64(1),
	}, protocol.Options{})

	require.Error(t, err)
	assert.True(t, resilience.IsMaxRetries(err))
}

func TestSchema_RequiresURL(t *testing.T) {
	schema := Schema()

	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema["required"], "url")
}
