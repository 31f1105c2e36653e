package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/medtravel/directory/internal/domain/providers"
	redisclient "github.com/medtravel/directory/internal/infrastructure/clients/redis"
)

// RedisRateLimiter is a fixed-window counter shared by every instance
type RedisRateLimiter struct {
	client *redisclient.Client
	prefix string
	limit  int64
	window time.Duration
}

var _ providers.RateLimiter = (*RedisRateLimiter)(nil)

// NewRedisRateLimiter allows limit events per key within each window
func NewRedisRateLimiter(client *redisclient.Client, prefix string, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, prefix: prefix, limit: int64(limit), window: window}
}

// Allow increments the key's counter for the current window
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket)

	pipe := l.client.Client().TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	return incr.Val() <= l.limit, nil
}
