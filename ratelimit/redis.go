package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares windows across instances through INCR/EXPIRE counters
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter connects to addr and verifies the connection
func NewRedisLimiter(ctx context.Context, addr string) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisLimiter{client: client, prefix: "ratelimit:"}, nil
}

// Allow increments the window counter for key and reports whether it is within limit
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	bucket := time.Now().UnixNano() / int64(window)
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, key, bucket)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}
	return incr.Val() <= int64(limit), nil
}

// Close releases the redis connection pool
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
