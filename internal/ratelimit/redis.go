package ratelimit

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"pengaduan/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript prunes, counts and conditionally records in one round
// trip so replicas sharing the key never over-admit.
//
// KEYS[1] = window key
// ARGV = now (ms), windowStart (ms), maxRequests, ttl (ms), member
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local maxRequests = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', '(' .. ARGV[2])
local count = redis.call('ZCARD', key)
if count >= maxRequests then
	return 0
end
redis.call('ZADD', key, now, ARGV[5])
redis.call('PEXPIRE', key, ttl)
return 1
`)

// RedisLimiter applies the same sliding-window algorithm as Limiter on a
// Redis sorted set, so several service replicas share one budget per key.
//
// Redis failures fail open: the request is admitted and the error logged.
type RedisLimiter struct {
	client      *redis.Client
	name        string
	window      time.Duration
	maxRequests int
	timeout     time.Duration
	now         func() time.Time
}

// NewRedisLimiter connects to redisURL and returns a shared limiter.
func NewRedisLimiter(redisURL, name string, window time.Duration, maxRequests int) (*RedisLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisLimiterWithClient(client, name, window, maxRequests), nil
}

// NewRedisLimiterWithClient wraps an existing client.
func NewRedisLimiterWithClient(client *redis.Client, name string, window time.Duration, maxRequests int) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		name:        name,
		window:      window,
		maxRequests: maxRequests,
		timeout:     2 * time.Second,
		now:         time.Now,
	}
}

func (r *RedisLimiter) redisKey(key string) string {
	return fmt.Sprintf("ratelimit:%s:%s", r.name, key)
}

// IsAllowed reports whether a request for key may proceed and, if so,
// records it.
func (r *RedisLimiter) IsAllowed(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	now := r.now()
	windowStart := now.Add(-r.window)
	member := strconv.FormatInt(now.UnixMilli(), 10) + "-" + uuid.NewString()

	allowed, err := slidingWindowScript.Run(ctx, r.client,
		[]string{r.redisKey(key)},
		now.UnixMilli(),
		windowStart.UnixMilli(),
		r.maxRequests,
		r.window.Milliseconds(),
		member,
	).Int()
	if err != nil {
		log.Printf("⚠️  Redis rate limiter unavailable, allowing %s: %v", key, err)
		return true
	}

	if allowed == 0 {
		log.Printf("⚠️  Rate limit exceeded for %s (%s limiter: %d requests per %v)", key, r.name, r.maxRequests, r.window)
		metrics.RecordRateLimitDenied(r.name)
		return false
	}
	return true
}

// Reset clears the given keys, or every key of this limiter when called
// without arguments.
func (r *RedisLimiter) Reset(keys ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if len(keys) > 0 {
		redisKeys := make([]string, len(keys))
		for i, k := range keys {
			redisKeys[i] = r.redisKey(k)
		}
		if err := r.client.Del(ctx, redisKeys...).Err(); err != nil {
			log.Printf("⚠️  Failed to reset rate limit keys: %v", err)
		}
		return
	}

	iter := r.client.Scan(ctx, 0, r.redisKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			log.Printf("⚠️  Failed to reset rate limit key %s: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("⚠️  Failed to scan rate limit keys: %v", err)
	}
}

// Close releases the Redis connection.
func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
