package workflow

import (
	"context"
	"sync"
)

// Registry keeps one engine per report so concurrent HTTP requests for the
// same report share its busy guard and draft.
type Registry struct {
	backend  Backend
	identity Identity
	opts     []Option

	mu      sync.Mutex
	engines map[string]*entry
}

// entry is a registered engine. ready is closed once the first load has
// finished; err holds its failure.
type entry struct {
	engine *Engine
	ready  chan struct{}
	err    error
}

// NewRegistry creates a registry whose engines share backend, identity and
// opts.
func NewRegistry(backend Backend, identity Identity, opts ...Option) *Registry {
	return &Registry{
		backend:  backend,
		identity: identity,
		opts:     opts,
		engines:  make(map[string]*entry),
	}
}

// Open returns the engine of reportID, loading the report on first use.
// Callers arriving while that load runs wait for it and get its error.
//
// Flow:
//  1. Known report: wait until its first load is done
//  2. Unknown report: register the entry, then load outside the lock
//  3. Failed load: unregister so the next Open tries again
func (r *Registry) Open(ctx context.Context, reportID string) (*Engine, error) {
	r.mu.Lock()
	ent, ok := r.engines[reportID]
	if ok {
		r.mu.Unlock()
		select {
		case <-ent.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if ent.err != nil {
			return nil, ent.err
		}
		return ent.engine, nil
	}

	ent = &entry{
		engine: New(r.backend, r.identity, r.opts...),
		ready:  make(chan struct{}),
	}
	r.engines[reportID] = ent
	r.mu.Unlock()

	_, err := ent.engine.Load(ctx, reportID)
	if err != nil {
		ent.err = err
		r.mu.Lock()
		if r.engines[reportID] == ent {
			delete(r.engines, reportID)
		}
		r.mu.Unlock()
	}
	close(ent.ready)

	if err != nil {
		return nil, err
	}
	return ent.engine, nil
}

// Forget drops the engine of reportID; the next Open reloads it.
func (r *Registry) Forget(reportID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.engines, reportID)
}
