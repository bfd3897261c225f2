package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisLimiter(t *testing.T, window time.Duration, maxRequests int) (*RedisLimiter, *fakeClock) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	clock := newFakeClock()
	l := NewRedisLimiterWithClient(client, "test", window, maxRequests)
	l.now = clock.Now
	return l, clock
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	l, clock := newTestRedisLimiter(t, 60*time.Second, 2)

	if !l.IsAllowed("k") {
		t.Fatal("first request should be allowed")
	}
	clock.Advance(30 * time.Second)
	if !l.IsAllowed("k") {
		t.Fatal("second request should be allowed")
	}
	if l.IsAllowed("k") {
		t.Fatal("third request inside the window should be denied")
	}

	clock.Advance(31 * time.Second)
	if !l.IsAllowed("k") {
		t.Error("request should be allowed after the first one left the window")
	}
}

func TestRedisLimiter_Reset(t *testing.T) {
	l, _ := newTestRedisLimiter(t, time.Minute, 1)

	l.IsAllowed("a")
	l.IsAllowed("b")

	l.Reset("a")
	if !l.IsAllowed("a") {
		t.Error("reset key should be allowed again")
	}
	if l.IsAllowed("b") {
		t.Error("Reset(a) must not clear b")
	}

	l.Reset()
	if !l.IsAllowed("b") {
		t.Error("Reset() should clear every key")
	}
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLimiterWithClient(client, "test", time.Minute, 1)
	l.timeout = 200 * time.Millisecond
	mr.Close()

	if !l.IsAllowed("k") || !l.IsAllowed("k") {
		t.Error("limiter should admit requests when redis is unreachable")
	}
}
