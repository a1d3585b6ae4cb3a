package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const tokenKeyPrefix = "conductor:approval:"

// RedisGate stores tokens in Redis so every service instance can authorize
// them. The key TTL enforces expiry; GETDEL makes consumption atomic, so a
// token can be authorized by exactly one caller.
type RedisGate struct {
	client redis.UniversalClient
}

// NewRedisGate creates a gate backed by the given Redis client.
func NewRedisGate(client redis.UniversalClient) *RedisGate {
	return &RedisGate{client: client}
}

// Issue creates a single-use token bound to the workflow.
func (g *RedisGate) Issue(ctx context.Context, workflowID, reason string, ttl time.Duration) (*Token, error) {
	token := &Token{
		Value:      uuid.New().String(),
		WorkflowID: workflowID,
		Reason:     reason,
		ExpiresAt:  time.Now().Add(ttl),
	}

	data, err := json.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("failed to encode approval token: %w", err)
	}

	err = g.client.Set(ctx, tokenKeyPrefix+token.Value, data, ttl).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to store approval token: %w", err)
	}

	return token, nil
}

// Authorize consumes the token atomically via GETDEL.
func (g *RedisGate) Authorize(ctx context.Context, tokenValue string) (*Token, error) {
	data, err := g.client.GetDel(ctx, tokenKeyPrefix+tokenValue).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}

		return nil, fmt.Errorf("failed to consume approval token: %w", err)
	}

	var token Token

	err = json.Unmarshal(data, &token)
	if err != nil {
		return nil, fmt.Errorf("failed to decode approval token: %w", err)
	}

	if time.Now().After(token.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	return &token, nil
}
