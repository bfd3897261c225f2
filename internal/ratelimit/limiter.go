// Package ratelimit provides the sliding-window request gate that every
// outbound backend call passes through.
//
// A Limiter tracks, per key, the timestamps of recently admitted requests.
// Keys are derived from the request as "{METHOD}-{path}" by the API client.
// A request is admitted while fewer than maxRequests timestamps fall inside
// the trailing window; refused attempts are not recorded.
//
// Limiters are explicitly constructed and injected. Two instances normally
// coexist: the general API limiter and the stricter mode-toggle limiter.
package ratelimit

import (
	"log"
	"sync"
	"time"

	"pengaduan/internal/metrics"
)

// Gate is the admission check consulted before a request is sent.
type Gate interface {
	IsAllowed(key string) bool
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithName labels the limiter in logs and metrics.
func WithName(name string) Option {
	return func(l *Limiter) {
		l.name = name
	}
}

// Limiter is an in-memory sliding-window limiter. Safe for concurrent use.
type Limiter struct {
	name        string
	window      time.Duration
	maxRequests int
	now         func() time.Time

	mu       sync.Mutex
	requests map[string][]time.Time
}

// NewLimiter creates a limiter admitting maxRequests per key within window.
func NewLimiter(window time.Duration, maxRequests int, opts ...Option) *Limiter {
	l := &Limiter{
		name:        "api",
		window:      window,
		maxRequests: maxRequests,
		now:         time.Now,
		requests:    make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the limiter label.
func (l *Limiter) Name() string {
	return l.name
}

// IsAllowed reports whether a request for key may proceed and, if so,
// records it.
func (l *Limiter) IsAllowed(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.window)

	kept := l.requests[key][:0]
	for _, ts := range l.requests[key] {
		if !ts.Before(windowStart) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.maxRequests {
		l.requests[key] = kept
		log.Printf("⚠️  Rate limit exceeded for %s (%s limiter: %d requests per %v)", key, l.name, l.maxRequests, l.window)
		metrics.RecordRateLimitDenied(l.name)
		return false
	}

	l.requests[key] = append(kept, now)
	return true
}

// Reset clears the history of the given keys, or of every key when called
// without arguments.
func (l *Limiter) Reset(keys ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(keys) == 0 {
		l.requests = make(map[string][]time.Time)
		return
	}
	for _, key := range keys {
		delete(l.requests, key)
	}
}

// Count returns how many requests for key are currently inside the window.
func (l *Limiter) Count(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := l.now().Add(-l.window)
	n := 0
	for _, ts := range l.requests[key] {
		if !ts.Before(windowStart) {
			n++
		}
	}
	return n
}
