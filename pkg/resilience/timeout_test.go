package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTimeout_ReturnsOperationResult(t *testing.T) {
	data, err := WithTimeout(context.Background(), time.Second, func(ctx context.Context) (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, data)
}

func TestWithTimeout_ReturnsOperationError(t *testing.T) {
	opErr := errors.New("boom")

	data, err := WithTimeout(context.Background(), time.Second, func(ctx context.Context) (map[string]any, error) {
		return nil, opErr
	}, nil)

	require.ErrorIs(t, err, opErr)
	assert.Nil(t, data)
}

func TestWithTimeout_TimesOutWithoutFallback(t *testing.T) {
	data, err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (map[string]any, error) {
		time.Sleep(time.Second)

		return map[string]any{"late": true}, nil
	}, nil)

	require.Error(t, err)
	assert.Nil(t, data)
	assert.True(t, IsTimeout(err))

	var timeoutErr *TimeoutError

	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 10*time.Millisecond, timeoutErr.Timeout)
}

func TestWithTimeout_FallbackOnTimeout(t *testing.T) {
	data, err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (map[string]any, error) {
		time.Sleep(time.Second)

		return nil, nil
	}, func(ctx context.Context) (map[string]any, error) {
		return map[string]any{"degraded": true}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"degraded": true}, data)
}

func TestWithTimeout_OperationKeepsRunningAfterTimeout(t *testing.T) {
	finished := make(chan struct{})

	_, err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (map[string]any, error) {
		time.Sleep(50 * time.Millisecond)
		close(finished)

		return nil, nil
	}, nil)

	require.Error(t, err)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("operation was cancelled by the timeout, expected it to keep running")
	}
}

func TestWithTimeout_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithTimeout(ctx, time.Second, func(ctx context.Context) (map[string]any, error) {
		time.Sleep(time.Second)

		return nil, nil
	}, nil)

	require.ErrorIs(t, err, context.Canceled)
}
