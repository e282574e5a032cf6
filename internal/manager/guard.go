package manager

import (
	"context"
	"sync"
)

// FetchGuard records which models have a download in flight. At most one
// download per model runs at a time; callers arriving while one runs get the
// in-flight Ticket and may wait on it.
type FetchGuard struct {
	mu       sync.Mutex
	inflight map[string]*Ticket
}

// Ticket is one acquisition of the guard for a model.
type Ticket struct {
	g     *FetchGuard
	model string
	once  sync.Once
	done  chan struct{}
	err   error
}

func NewFetchGuard() *FetchGuard {
	return &FetchGuard{inflight: make(map[string]*Ticket)}
}

// TryAcquire marks model as in flight. It returns the new ticket and true, or
// the ticket of the download already in flight and false. The check and the
// mark happen under one lock.
func (g *FetchGuard) TryAcquire(model string) (*Ticket, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.inflight[model]; ok {
		return t, false
	}
	t := &Ticket{g: g, model: model, done: make(chan struct{})}
	g.inflight[model] = t
	return t, true
}

// InFlight reports whether a download for model is running.
func (g *FetchGuard) InFlight(model string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inflight[model]
	return ok
}

// Model returns the model this ticket guards.
func (t *Ticket) Model() string { return t.model }

// Release clears the in-flight mark and wakes waiters with err. Only the
// first call has an effect.
func (t *Ticket) Release(err error) {
	t.once.Do(func() {
		t.g.mu.Lock()
		if t.g.inflight[t.model] == t {
			delete(t.g.inflight, t.model)
		}
		t.err = err
		t.g.mu.Unlock()
		close(t.done)
	})
}

// Wait blocks until the ticket is released or ctx is done.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return t.err
	}
}

// Done is closed once the ticket is released.
func (t *Ticket) Done() <-chan struct{} { return t.done }
