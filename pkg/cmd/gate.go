package cmd

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dukex/conductor/pkg/approval"
)

// NewGate creates the approval gate. With a redis URL tokens survive process
// restarts and are shared across replicas; without one the in-memory gate is
// used, which only makes sense for a single process.
func NewGate(redisURL string) approval.Gate {
	if redisURL == "" {
		return approval.NewMemoryGate()
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("invalid redis URL: %w", err))
	}

	return approval.NewRedisGate(redis.NewClient(options))
}
