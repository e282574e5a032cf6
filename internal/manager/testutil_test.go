package manager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"modelgate/internal/launcher"
	"modelgate/pkg/types"
)

type fakeProbe struct {
	alive atomic.Bool
	calls atomic.Int32
}

func (p *fakeProbe) Alive(context.Context) bool {
	p.calls.Add(1)
	return p.alive.Load()
}

type fakeLauncher struct {
	probe *fakeProbe
	err   error
	calls atomic.Int32
}

func (l *fakeLauncher) Start(context.Context) (launcher.Result, error) {
	l.calls.Add(1)
	if l.err != nil {
		return "", l.err
	}
	l.probe.alive.Store(true)
	return launcher.ResultSpawned, nil
}

type fakeCatalog struct {
	present atomic.Bool
	mu      sync.Mutex
	err     error
}

func (c *fakeCatalog) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func (c *fakeCatalog) Lookup(context.Context, string) (bool, error) {
	c.mu.Lock()
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return false, err
	}
	return c.present.Load(), nil
}

func (c *fakeCatalog) HasModel(ctx context.Context, model string) bool {
	ok, err := c.Lookup(ctx, model)
	return err == nil && ok
}

// fakeFetcher blocks on gate (when set), then panics with panicWith, fails
// with err or marks the catalog as holding the model.
type fakeFetcher struct {
	catalog   *fakeCatalog
	gate      chan struct{}
	started   chan struct{}
	err       error
	panicWith any
	progress []types.PullProgress
	calls    atomic.Int32
}

func (f *fakeFetcher) Pull(ctx context.Context, _ string, onProgress func(types.PullProgress)) error {
	f.calls.Add(1)
	for _, p := range f.progress {
		onProgress(p)
	}
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.err != nil {
		return f.err
	}
	f.catalog.present.Store(true)
	return nil
}

type genResult struct {
	out string
	err error
}

// fakeGenerator replays results in order, repeating the last one.
type fakeGenerator struct {
	mu      sync.Mutex
	results []genResult
	calls   int
}

func (g *fakeGenerator) Generate(context.Context, string, string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	g.calls++
	if len(g.results) == 0 {
		return "ok", nil
	}
	if i >= len(g.results) {
		i = len(g.results) - 1
	}
	return g.results[i].out, g.results[i].err
}

func (g *fakeGenerator) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fixture struct {
	m   *Manager
	pr  *fakeProbe
	la  *fakeLauncher
	cat *fakeCatalog
	fe  *fakeFetcher
	gen *fakeGenerator
	pub *MemoryPublisher
}

// newFixture returns a manager whose daemon is up and whose model is absent.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{pr: &fakeProbe{}, cat: &fakeCatalog{}, gen: &fakeGenerator{}, pub: NewMemoryPublisher()}
	f.pr.alive.Store(true)
	f.la = &fakeLauncher{probe: f.pr}
	f.fe = &fakeFetcher{catalog: f.cat}
	f.m = NewWithConfig(ManagerConfig{
		Model:      "gemma:2b",
		InstanceID: "test-1",
		Probe:      f.pr,
		Launcher:   f.la,
		Catalog:    f.cat,
		Fetcher:    f.fe,
		Generator:  f.gen,
		Publisher:  f.pub,
	})
	t.Cleanup(func() { _ = f.m.Close() })
	return f
}

// waitIdle waits until no download is in flight.
func waitIdle(t *testing.T, m *Manager) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for m.Guard().InFlight(m.Model()) {
		if time.Now().After(deadline) {
			t.Fatalf("download still in flight")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

var errBoom = errors.New("boom")
