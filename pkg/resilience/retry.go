package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy controls WithRetry. Delays grow by Multiplier per attempt and
// are capped at MaxDelay. With Jitter enabled each delay is perturbed by a
// uniform ±20%, clamped to at least one millisecond.
type RetryPolicy struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	MaxRetries int
	Jitter     bool
}

// DefaultRetryPolicy returns the policy used when callers pass a zero value.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2,
		MaxRetries: 5,
		Jitter:     true,
	}
}

// Operation is a retryable unit of work.
type Operation func(ctx context.Context) error

// WithRetry runs op up to policy.MaxRetries times, sleeping between attempts.
// The calling goroutine blocks across the whole backoff sequence; this
// occupies the worker for the full duration, which is the intended call-site
// semantics. Every failure is retried uniformly, the policy does not
// distinguish retryable from fatal errors.
//
// Exhausting the budget returns a MaxRetriesError wrapping the last failure.
// A cancelled context aborts the sleep and returns ctx.Err().
func WithRetry(ctx context.Context, policy RetryPolicy, op Operation) error {
	if policy.MaxRetries <= 0 {
		policy = DefaultRetryPolicy()
	}

	var lastErr error

	for attempt := range policy.MaxRetries {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == policy.MaxRetries-1 {
			break
		}

		select {
		case <-time.After(policy.Delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return &MaxRetriesError{Attempts: policy.MaxRetries, Err: lastErr}
}

// Delay computes the backoff delay for the given zero-based attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay

	for range attempt {
		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay >= p.MaxDelay {
			delay = p.MaxDelay

			break
		}
	}

	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.Jitter {
		// Uniform in [-20%, +20%], clamped so we never sleep below 1ms.
		spread := float64(delay) * 0.2
		delay += time.Duration((rand.Float64()*2 - 1) * spread)

		if delay < time.Millisecond {
			delay = time.Millisecond
		}
	}

	return delay
}
