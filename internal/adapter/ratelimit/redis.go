// Package ratelimit throttles clients with fixed-window counters kept in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultLimit  = 10
	DefaultWindow = time.Minute
)

// Limiter counts hits per key in windows of a fixed length. The first hit of a
// window starts its expiry, so every key resets at most window after its first use.
type Limiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func NewLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}

	return &Limiter{
		client: client,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
	}
}

// Allow records a hit for key and reports whether it is still within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	const op = "adapter.ratelimit.Limiter.Allow"

	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%s: failed to count hit: %w", op, err)
	}

	return incr.Val() <= l.limit, nil
}
