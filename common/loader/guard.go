package loader

import (
	"context"
	"sync"
)

// Guard owns the single live handle of one consumer (a view) and the
// context its loads run under. The previous handle is released when a new
// one is adopted, on Reset, and on Teardown. Every release path is idempotent.
type Guard struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	current *Handle
	// generation orders loads so a slow older load cannot replace a newer one
	started  uint64
	adopted  uint64
	tornDown bool
}

// NewGuard creates a guard whose context derives from parent
func NewGuard(parent context.Context) *Guard {
	ctx, cancel := context.WithCancel(parent)
	return &Guard{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context is cancelled on Teardown
func (g *Guard) Context() context.Context {
	return g.ctx
}

// Alive reports whether the guard has not been torn down
func (g *Guard) Alive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.tornDown
}

// Current returns the live handle, if any
func (g *Guard) Current() *Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Adopt makes h the live handle, releasing the previous one.
// If the guard is torn down h is released instead and ErrTornDown returned.
func (g *Guard) Adopt(h *Handle) error {
	return g.adopt(h, g.begin())
}

// Reset releases the live handle
func (g *Guard) Reset() {
	g.mu.Lock()
	prev := g.current
	g.current = nil
	// loads started before the reset must not resurrect a handle
	g.adopted = g.started
	g.mu.Unlock()

	prev.Release()
}

// Teardown cancels in-flight loads and releases the live handle.
// Calling it more than once is a no-op.
func (g *Guard) Teardown() {
	g.mu.Lock()
	prev := g.current
	g.current = nil
	g.tornDown = true
	g.mu.Unlock()

	g.cancel()
	prev.Release()
}

// Load runs a load under both ctx and the guard's context and adopts the
// resulting handle
func (g *Guard) Load(ctx context.Context, o *Orchestrator, contentID string) (*LoadedContent, error) {
	return g.run(ctx, contentID, o.Load)
}

// Retry runs a retry under both ctx and the guard's context and adopts the
// resulting handle
func (g *Guard) Retry(ctx context.Context, o *Orchestrator, contentID string) (*LoadedContent, error) {
	return g.run(ctx, contentID, o.Retry)
}

func (g *Guard) run(ctx context.Context, contentID string, load func(context.Context, string) (*LoadedContent, error)) (*LoadedContent, error) {
	gen := g.begin()

	runCtx, cancel := g.merge(ctx)
	defer cancel()

	loaded, err := load(runCtx, contentID)
	if err != nil {
		return nil, err
	}

	if err := g.adopt(loaded.Handle, gen); err != nil {
		return nil, err
	}
	return loaded, nil
}

// merge returns a context cancelled when either ctx or the guard's context is
func (g *Guard) merge(ctx context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(g.ctx, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

func (g *Guard) begin() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.started++
	return g.started
}

func (g *Guard) adopt(h *Handle, gen uint64) error {
	g.mu.Lock()
	if g.tornDown {
		g.mu.Unlock()
		h.Release()
		return ErrTornDown
	}
	if gen <= g.adopted {
		g.mu.Unlock()
		h.Release()
		return ErrSuperseded
	}

	prev := g.current
	g.current = h
	g.adopted = gen
	h.owned.Store(true)
	g.mu.Unlock()

	if prev != h {
		prev.Release()
	}
	return nil
}
