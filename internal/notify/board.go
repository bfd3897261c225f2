// Package notify holds the user-visible notification of a workflow session.
//
// The dashboard shows one banner at a time: a success or error message that
// disappears on its own after a few seconds. Board keeps that banner for the
// HTTP surface and, optionally, mirrors it to a Forwarder (Telegram).
package notify

import (
	"log"
	"sync"
	"time"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 5 * time.Second

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notice is one user-visible notification.
type Notice struct {
	Kind     Kind      `json:"kind"`
	Message  string    `json:"message"`
	PostedAt time.Time `json:"postedAt"`
}

// Forwarder mirrors notices somewhere else (e.g. a Telegram chat).
type Forwarder interface {
	Forward(n Notice)
}

// Stopper is the part of *time.Timer the board needs.
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f after d; time.AfterFunc in production.
type AfterFunc func(d time.Duration, f func()) Stopper

// Option configures a Board.
type Option func(*Board)

// WithTTL overrides the auto-dismiss delay.
func WithTTL(ttl time.Duration) Option {
	return func(b *Board) {
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

// WithAfterFunc replaces the timer source (tests).
func WithAfterFunc(fn AfterFunc) Option {
	return func(b *Board) {
		b.afterFunc = fn
	}
}

// WithForwarder mirrors every posted notice to f.
func WithForwarder(f Forwarder) Option {
	return func(b *Board) {
		b.forwarder = f
	}
}

// WithClock replaces the clock used for PostedAt.
func WithClock(now func() time.Time) Option {
	return func(b *Board) {
		b.now = now
	}
}

// Board is safe for concurrent use.
type Board struct {
	ttl       time.Duration
	afterFunc AfterFunc
	forwarder Forwarder
	now       func() time.Time

	mu      sync.Mutex
	current *Notice
	timer   Stopper
	seq     uint64
}

// NewBoard creates an empty board.
func NewBoard(opts ...Option) *Board {
	b := &Board{
		ttl: DefaultTTL,
		afterFunc: func(d time.Duration, f func()) Stopper {
			return time.AfterFunc(d, f)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Success posts a success notice.
func (b *Board) Success(msg string) { b.Post(KindSuccess, msg) }

// Error posts an error notice.
func (b *Board) Error(msg string) { b.Post(KindError, msg) }

// Post replaces the current notice and schedules its dismissal. A newer
// notice is never cleared by the timer of an older one.
func (b *Board) Post(kind Kind, msg string) {
	n := Notice{Kind: kind, Message: msg, PostedAt: b.now()}

	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.seq++
	seq := b.seq
	b.current = &n
	b.timer = b.afterFunc(b.ttl, func() { b.expire(seq) })
	forwarder := b.forwarder
	b.mu.Unlock()

	if kind == KindError {
		log.Printf("  ❌ %s", msg)
	} else {
		log.Printf("  ✓ %s", msg)
	}

	if forwarder != nil {
		forwarder.Forward(n)
	}
}

// Current returns the visible notice, if any.
func (b *Board) Current() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return Notice{}, false
	}
	return *b.current, true
}

// Dismiss clears the visible notice.
func (b *Board) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.current = nil
}

func (b *Board) expire(seq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.seq == seq {
		b.current = nil
		b.timer = nil
	}
}
