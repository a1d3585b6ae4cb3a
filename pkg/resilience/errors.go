// Package resilience provides retry with backoff, bounded timeouts with
// fallback, and a circuit breaker for calls to unreliable dependencies.
package resilience

import (
	"errors"
	"fmt"
	"time"
)

// ErrCircuitOpen is returned when a breaker rejects a call without running it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// MaxRetriesError wraps the last failure after the retry budget is exhausted.
type MaxRetriesError struct {
	Attempts int
	Err      error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("max retries exceeded after %d attempts: %v", e.Attempts, e.Err)
}

func (e *MaxRetriesError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned by WithTimeout when the operation overruns its
// budget and no fallback is configured.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out after %s", e.Timeout)
}

// IsMaxRetries reports whether err is a MaxRetriesError.
func IsMaxRetries(err error) bool {
	var maxRetries *MaxRetriesError

	return errors.As(err, &maxRetries)
}

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool {
	var timeout *TimeoutError

	return errors.As(err, &timeout)
}
