package resilience

import (
	"context"
	"time"
)

// BreakerState represents the state of a circuit breaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// Breaker is a value-typed circuit breaker. Execute is a pure transition
// function returning the successor value; the caller owns the value and
// threads it through calls. Concurrent callers sharing one logical breaker
// must serialize updates through a single owning goroutine, otherwise
// transitions are lost. There is deliberately no shared mutable singleton
// here.
type Breaker struct {
	Name             string
	State            BreakerState
	FailureCount     int
	SuccessCount     int
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration

	// HalfOpenCount is the number of probes admitted since the breaker
	// entered half_open; it resets on every state transition.
	HalfOpenCount int

	// HalfOpenMaxRequests bounds probes per half-open episode. Spending the
	// budget without closing reopens the circuit, so the next episode starts
	// after another OpenTimeout. Zero or negative means no cap. Must be at
	// least SuccessThreshold for the breaker to be able to close.
	HalfOpenMaxRequests int

	OpenedAt      time.Time
	LastFailureAt time.Time
}

// NewBreaker creates a closed breaker with the given thresholds.
func NewBreaker(name string, failureThreshold, successThreshold int, openTimeout time.Duration, halfOpenMaxRequests int) Breaker {
	return Breaker{
		Name:                name,
		State:               BreakerClosed,
		FailureThreshold:    failureThreshold,
		SuccessThreshold:    successThreshold,
		OpenTimeout:         openTimeout,
		HalfOpenMaxRequests: halfOpenMaxRequests,
	}
}

// Execute runs op under the breaker and returns the successor breaker value.
//
// An open breaker whose timeout has elapsed treats the call as a half-open
// probe; the transition is evaluated lazily per call rather than by a
// background timer. A rejected call returns ErrCircuitOpen and consumes no
// retry budget.
func Execute(ctx context.Context, breaker Breaker, op Operation) (Breaker, error) {
	now := time.Now()

	switch breaker.State {
	case BreakerOpen:
		if now.Before(breaker.OpenedAt.Add(breaker.OpenTimeout)) {
			return breaker, ErrCircuitOpen
		}
		// Timeout elapsed, this call becomes a probe.
		breaker.State = BreakerHalfOpen
		breaker.HalfOpenCount = 0
		breaker.SuccessCount = 0

		return executeHalfOpen(ctx, breaker, op)
	case BreakerHalfOpen:
		return executeHalfOpen(ctx, breaker, op)
	case BreakerClosed:
		fallthrough
	default:
		return executeClosed(ctx, breaker, op)
	}
}

func executeClosed(ctx context.Context, breaker Breaker, op Operation) (Breaker, error) {
	err := op(ctx)
	if err == nil {
		breaker.FailureCount = 0

		return breaker, nil
	}

	breaker.FailureCount++
	breaker.LastFailureAt = time.Now()

	if breaker.FailureCount >= breaker.FailureThreshold {
		breaker = open(breaker)
	}

	return breaker, err
}

func executeHalfOpen(ctx context.Context, breaker Breaker, op Operation) (Breaker, error) {
	if breaker.HalfOpenMaxRequests > 0 && breaker.HalfOpenCount >= breaker.HalfOpenMaxRequests {
		// Probe budget for this episode is spent without closing; reopen so
		// another episode starts after the timeout.
		return open(breaker), ErrCircuitOpen
	}

	breaker.HalfOpenCount++

	err := op(ctx)
	if err != nil {
		// Any half-open failure reopens immediately with a fresh timestamp.
		breaker.LastFailureAt = time.Now()

		return open(breaker), err
	}

	breaker.SuccessCount++
	if breaker.SuccessCount >= breaker.SuccessThreshold {
		breaker.State = BreakerClosed
		breaker.FailureCount = 0
		breaker.SuccessCount = 0
		breaker.HalfOpenCount = 0
	}

	return breaker, nil
}

// open transitions to the open state, resetting counters.
func open(breaker Breaker) Breaker {
	breaker.State = BreakerOpen
	breaker.OpenedAt = time.Now()
	breaker.FailureCount = 0
	breaker.SuccessCount = 0
	breaker.HalfOpenCount = 0

	return breaker
}

// BreakerStatus is a point-in-time view of a breaker for observability.
type BreakerStatus struct {
	Name          string       `json:"name"`
	State         BreakerState `json:"state"`
	FailureCount  int          `json:"failure_count"`
	SuccessCount  int          `json:"success_count"`
	OpenedAt      time.Time    `json:"opened_at,omitzero"`
	LastFailureAt time.Time    `json:"last_failure_at,omitzero"`
}

// Status reports the breaker's current state and counters.
func Status(breaker Breaker) BreakerStatus {
	return BreakerStatus{
		Name:          breaker.Name,
		State:         breaker.State,
		FailureCount:  breaker.FailureCount,
		SuccessCount:  breaker.SuccessCount,
		OpenedAt:      breaker.OpenedAt,
		LastFailureAt: breaker.LastFailureAt,
	}
}

// Reset returns the breaker to a clean closed state for manual recovery.
func Reset(breaker Breaker) Breaker {
	breaker.State = BreakerClosed
	breaker.FailureCount = 0
	breaker.SuccessCount = 0
	breaker.HalfOpenCount = 0
	breaker.OpenedAt = time.Time{}
	breaker.LastFailureAt = time.Time{}

	return breaker
}
