package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiter_BudgetPerWindow(t *testing.T) {
	tests := []struct {
		name        string
		window      time.Duration
		maxRequests int
	}{
		{"general api limiter", 60 * time.Second, 15},
		{"mode limiter", 30 * time.Second, 5},
		{"single request", time.Second, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			l := NewLimiter(tt.window, tt.maxRequests, WithClock(clock.Now))

			for i := 0; i < tt.maxRequests; i++ {
				if !l.IsAllowed("GET-/reports") {
					t.Fatalf("request %d should be allowed", i+1)
				}
				clock.Advance(tt.window / time.Duration(tt.maxRequests*2))
			}

			if l.IsAllowed("GET-/reports") {
				t.Errorf("request %d within the window should be denied", tt.maxRequests+1)
			}
		})
	}
}

func TestLimiter_DeniedAttemptsAreNotRecorded(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter(10*time.Second, 2, WithClock(clock.Now))

	l.IsAllowed("k")
	l.IsAllowed("k")
	for i := 0; i < 5; i++ {
		l.IsAllowed("k")
	}

	if got := l.Count("k"); got != 2 {
		t.Errorf("expected 2 recorded requests but got %d", got)
	}
}

func TestLimiter_SlidingWindow(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter(60*time.Second, 2, WithClock(clock.Now))

	l.IsAllowed("k") // t=0
	clock.Advance(30 * time.Second)
	l.IsAllowed("k") // t=30s

	if l.IsAllowed("k") {
		t.Fatal("third request at t=30s should be denied")
	}

	// t=61s: only the first request left the window
	clock.Advance(31 * time.Second)
	if !l.IsAllowed("k") {
		t.Fatal("request at t=61s should be allowed once the first one expired")
	}
	if l.IsAllowed("k") {
		t.Error("window still holds t=30s and t=61s, next request should be denied")
	}
}

func TestLimiter_BoundaryTimestampStaysInWindow(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter(10*time.Second, 1, WithClock(clock.Now))

	l.IsAllowed("k")
	clock.Advance(10 * time.Second)

	if l.IsAllowed("k") {
		t.Error("a request exactly windowMs old is not older than windowStart and must still count")
	}

	clock.Advance(time.Millisecond)
	if !l.IsAllowed("k") {
		t.Error("request should be allowed once the first one is strictly older than the window")
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := NewLimiter(time.Minute, 1)

	if !l.IsAllowed("PUT-/tindakan/a") {
		t.Fatal("first key should be allowed")
	}
	if !l.IsAllowed("PUT-/tindakan/b") {
		t.Error("second key has its own budget")
	}
	if l.IsAllowed("PUT-/tindakan/a") {
		t.Error("first key should be exhausted")
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := NewLimiter(time.Minute, 1)

	l.IsAllowed("a")
	l.IsAllowed("b")
	l.IsAllowed("c")

	l.Reset("a")
	if !l.IsAllowed("a") {
		t.Error("reset key should be allowed again")
	}
	if l.IsAllowed("b") {
		t.Error("Reset(a) must not clear b")
	}

	l.Reset()
	for _, key := range []string{"a", "b", "c"} {
		if !l.IsAllowed(key) {
			t.Errorf("Reset() should clear %s", key)
		}
	}
}

func TestLimiter_Concurrency(t *testing.T) {
	l := NewLimiter(time.Minute, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.IsAllowed("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("expected exactly 50 admitted requests but got %d", allowed)
	}
}
