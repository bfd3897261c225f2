// Package browser reads session state out of a live dashboard tab.
//
// Administrators sign in to the dashboard in Chrome; the session (user
// object, access token) lives in the tab's localStorage. This package keeps
// one headless Chrome context around and evaluates a snapshot of that
// storage on demand, so the identity resolver can read the signed-in admin
// without a separate login flow.
//
// Key features:
//   - Thread-safe context holder shared across goroutines
//   - Lazy navigation to the dashboard on first read
//   - Restart after the tab or browser died
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// snapshotScript copies every localStorage entry into a plain object.
const snapshotScript = `(() => {
	const out = {};
	for (let i = 0; i < localStorage.length; i++) {
		const k = localStorage.key(i);
		out[k] = localStorage.getItem(k);
	}
	return JSON.stringify(out);
})()`

// ContextHolder provides thread-safe access to a browser context.
//
// Thread-safety:
//   - All methods use mutex locking
//   - Context swaps (Set, Restart) are atomic
type ContextHolder struct {
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewContextHolder creates a holder around a fresh headless Chrome context.
func NewContextHolder() *ContextHolder {
	ctx, cancel := NewContext()
	return &ContextHolder{ctx: ctx, cancel: cancel}
}

// Get returns the current browser context.
func (h *ContextHolder) Get() context.Context {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ctx
}

// Set replaces the browser context, cancelling the previous one.
func (h *ContextHolder) Set(ctx context.Context, cancel context.CancelFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
	}
	h.ctx = ctx
	h.cancel = cancel
}

// Restart swaps in a brand new browser context.
func (h *ContextHolder) Restart() {
	log.Println("  ⚠️  Restarting browser context...")
	ctx, cancel := NewContext()
	h.Set(ctx, cancel)
}

// Cancel shuts the browser down. Safe to call more than once.
func (h *ContextHolder) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// NewContext creates a new Chrome browser context with ChromeDP logging.
func NewContext() (context.Context, context.CancelFunc) {
	log.Println("  → Creating new browser context...")
	ctx, cancel := chromedp.NewContext(
		context.Background(),
		chromedp.WithLogf(log.Printf),
	)
	log.Println("  ✓ Browser context created successfully")
	return ctx, cancel
}

// Session reads localStorage from the dashboard page.
type Session struct {
	holder       *ContextHolder
	dashboardURL string
	timeout      time.Duration

	mu        sync.Mutex
	navigated bool
}

// NewSession creates a session reader for dashboardURL on top of holder.
func NewSession(holder *ContextHolder, dashboardURL string) *Session {
	return &Session{
		holder:       holder,
		dashboardURL: dashboardURL,
		timeout:      15 * time.Second,
	}
}

// LocalStorage returns a snapshot of the dashboard tab's localStorage.
//
// Flow:
//  1. Navigate to the dashboard on first use (the origin owns the storage)
//  2. Evaluate the snapshot script
//  3. On failure, restart the browser so the next call starts clean
//
// Values are the raw strings stored by the dashboard (objects stay
// JSON-encoded).
func (s *Session) LocalStorage(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bctx, cancel := context.WithTimeout(s.holder.Get(), s.timeout)
	defer cancel()

	// Abandon the browser call if the caller gives up first.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var actions []chromedp.Action
	if !s.navigated {
		actions = append(actions,
			chromedp.Navigate(s.dashboardURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	}

	var raw string
	actions = append(actions, chromedp.Evaluate(snapshotScript, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true).WithSilent(true)
	}))

	if err := chromedp.Run(bctx, actions...); err != nil {
		s.navigated = false
		s.holder.Restart()
		return nil, fmt.Errorf("failed to read dashboard localStorage: %w", err)
	}
	s.navigated = true

	storage := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &storage); err != nil {
		return nil, fmt.Errorf("failed to parse localStorage snapshot: %w", err)
	}
	return storage, nil
}
