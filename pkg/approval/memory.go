package approval

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryGate keeps issued tokens in a mutex-guarded map. Suitable for
// single-process deployments and tests; multi-process deployments use
// RedisGate so every instance sees the same tokens.
type MemoryGate struct {
	mu     sync.Mutex
	tokens map[string]*Token
}

// NewMemoryGate creates an empty in-memory gate.
func NewMemoryGate() *MemoryGate {
	return &MemoryGate{
		tokens: make(map[string]*Token),
	}
}

// Issue creates a single-use token bound to the workflow.
func (g *MemoryGate) Issue(_ context.Context, workflowID, reason string, ttl time.Duration) (*Token, error) {
	token := &Token{
		Value:      uuid.New().String(),
		WorkflowID: workflowID,
		Reason:     reason,
		ExpiresAt:  time.Now().Add(ttl),
	}

	g.mu.Lock()
	g.tokens[token.Value] = token
	g.mu.Unlock()

	return token, nil
}

// Authorize consumes the token. The delete happens under the lock before the
// expiry check, so even an expired token is gone after the first attempt.
func (g *MemoryGate) Authorize(_ context.Context, tokenValue string) (*Token, error) {
	g.mu.Lock()
	token, ok := g.tokens[tokenValue]
	delete(g.tokens, tokenValue)
	g.mu.Unlock()

	if !ok {
		return nil, ErrTokenNotFound
	}

	if time.Now().After(token.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	return token, nil
}
