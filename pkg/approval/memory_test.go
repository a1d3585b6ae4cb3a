package approval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGate_IssueAndAuthorize(t *testing.T) {
	ctx := context.Background()
	gate := NewMemoryGate()

	token, err := gate.Issue(ctx, "wf-1", "deploy to production", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token.Value)
	assert.Equal(t, "wf-1", token.WorkflowID)
	assert.Equal(t, "deploy to production", token.Reason)

	authorized, err := gate.Authorize(ctx, token.Value)
	require.NoError(t, err)
	assert.Equal(t, "wf-1", authorized.WorkflowID)
}

func TestMemoryGate_TokensAreSingleUse(t *testing.T) {
	ctx := context.Background()
	gate := NewMemoryGate()

	token, err := gate.Issue(ctx, "wf-1", "deploy", time.Minute)
	require.NoError(t, err)

	_, err = gate.Authorize(ctx, token.Value)
	require.NoError(t, err)

	_, err = gate.Authorize(ctx, token.Value)
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestMemoryGate_UnknownToken(t *testing.T) {
	gate := NewMemoryGate()

	_, err := gate.Authorize(context.Background(), "never-issued")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestMemoryGate_ExpiredToken(t *testing.T) {
	ctx := context.Background()
	gate := NewMemoryGate()

	token, err := gate.Issue(ctx, "wf-1", "deploy", -time.Second)
	require.NoError(t, err)

	_, err = gate.Authorize(ctx, token.Value)
	require.ErrorIs(t, err, ErrTokenExpired)

	// Expiry also consumes the token.
	_, err = gate.Authorize(ctx, token.Value)
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestMemoryGate_TokensAreUnique(t *testing.T) {
	ctx := context.Background()
	gate := NewMemoryGate()

	first, err := gate.Issue(ctx, "wf-1", "deploy", time.Minute)
	require.NoError(t, err)

	second, err := gate.Issue(ctx, "wf-1", "deploy", time.Minute)
	require.NoError(t, err)

	assert.NotEqual(t, first.Value, second.Value)
}
