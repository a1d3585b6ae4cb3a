// Package approval implements the approval gate: an external trust boundary
// issuing single-use, time-bounded tokens that resume paused workflows.
package approval

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTokenNotFound indicates the token was never issued or already consumed.
	ErrTokenNotFound = errors.New("approval token not found")

	// ErrTokenExpired indicates the token outlived its expiry.
	ErrTokenExpired = errors.New("approval token expired")
)

// Token is an issued approval token. The value is opaque to callers.
type Token struct {
	Value      string    `json:"value"`
	WorkflowID string    `json:"workflow_id"`
	Reason     string    `json:"reason"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Gate issues and authorizes approval tokens. Authorize consumes the token
// exactly once: a second call with the same token fails, which makes replays
// safe to ignore.
type Gate interface {
	Issue(ctx context.Context, workflowID, reason string, ttl time.Duration) (*Token, error)
	Authorize(ctx context.Context, tokenValue string) (*Token, error)
}
