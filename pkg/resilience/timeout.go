package resilience

import (
	"context"
	"time"
)

// Fallback produces a degraded-mode result when the primary operation times out.
type Fallback func(ctx context.Context) (map[string]any, error)

// ResultOperation is a unit of work that produces a result map.
type ResultOperation func(ctx context.Context) (map[string]any, error)

type timeoutResult struct {
	data map[string]any
	err  error
}

// WithTimeout races op against a timer. On timeout it invokes fallback when
// one is given, otherwise it returns a TimeoutError.
//
// The original operation is not forcibly cancelled: it may keep running in
// the background after the timer fires. Callers that need hard cancellation
// must honor ctx inside op themselves. This leaked-work window is a known
// limitation of the contract, not something WithTimeout papers over.
func WithTimeout(ctx context.Context, timeout time.Duration, op ResultOperation, fallback Fallback) (map[string]any, error) {
	done := make(chan timeoutResult, 1)

	go func() {
		data, err := op(ctx)
		done <- timeoutResult{data: data, err: err}
	}()

	select {
	case result := <-done:
		return result.data, result.err
	case <-time.After(timeout):
		if fallback != nil {
			return fallback(ctx)
		}

		return nil, &TimeoutError{Timeout: timeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
