package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter counts attempts per key inside a fixed window.
// A nil client or a non-positive max disables limiting.
type AttemptLimiter struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
}

// NewAttemptLimiter constructs a limiter storing counters under prefix.
func NewAttemptLimiter(client *redis.Client, prefix string, max int, window time.Duration) *AttemptLimiter {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &AttemptLimiter{client: client, prefix: prefix, max: max, window: window}
}

// Enabled reports whether attempts are being counted.
func (l *AttemptLimiter) Enabled() bool {
	return l != nil && l.client != nil && l.max > 0
}

// Allow records one attempt for key and reports whether it is within the limit.
func (l *AttemptLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	redisKey := l.prefix + key

	n, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("limiter incr %s: %w", redisKey, err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			// A counter without a TTL would lock the key out for good.
			_ = l.client.Del(ctx, redisKey).Err()
			return false, fmt.Errorf("limiter expire %s: %w", redisKey, err)
		}
	}
	return n <= int64(l.max), nil
}

// Reset clears the counter for key.
func (l *AttemptLimiter) Reset(ctx context.Context, key string) error {
	if !l.Enabled() {
		return nil
	}
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("limiter reset %s: %w", l.prefix+key, err)
	}
	return nil
}
