// internal/pipeline/dispatch/idempotency.go
package dispatch

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyGuard check-and-sets a key before a side-effecting handler
// runs, so a retried pipeline attempt does not double-fire effects that
// already happened.
type IdempotencyGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
}

// RedisGuard implements the guard with SETNX and a TTL; stale keys expire
// on their own, no cleanup pass needed.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, key, "1", g.ttl).Result()
}
