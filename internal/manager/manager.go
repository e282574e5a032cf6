package manager

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Manager is the readiness coordinator: it makes sure the daemon runs and the
// pinned model is resident before work is forwarded, and reports progress to
// pollers in the meantime.
type Manager struct {
	model      string
	instanceID string

	probe     Prober
	launcher  Launcher
	catalog   Catalog
	fetcher   Fetcher
	generator Generator

	fetchTO   time.Duration
	publisher EventPublisher
	guard     *FetchGuard
	log       zerolog.Logger

	// baseCtx parents background downloads; Close cancels it.
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.RWMutex
	state    State
	since    time.Time
	progress *float64
	err      string
}

// Model returns the pinned model identifier.
func (m *Manager) Model() string { return m.model }

// InstanceID returns this instance's identity.
func (m *Manager) InstanceID() string { return m.instanceID }

// Guard exposes the download guard.
func (m *Manager) Guard() *FetchGuard { return m.guard }

// Ready reports whether the last evaluation found the daemon up and the model
// present. It never contacts the daemon.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady
}

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{State: m.state, Model: m.model, Since: m.since, Err: m.err}
	if m.progress != nil {
		p := *m.progress
		s.Progress = &p
	}
	s.Fetching = m.guard.InFlight(m.model)
	return s
}

// Close abandons background downloads and waits for their goroutines.
func (m *Manager) Close() error {
	m.cancel()
	m.wg.Wait()
	return nil
}

func (m *Manager) setState(s State) {
	m.transition(func(State) bool { return true }, s)
}

// setStateIf moves to s only while the state is still from.
func (m *Manager) setStateIf(from, s State) {
	m.transition(func(cur State) bool { return cur == from }, s)
}

func (m *Manager) transition(allow func(State) bool, s State) {
	m.mu.Lock()
	prev := m.state
	changed := prev != s && allow(prev)
	if changed {
		m.state = s
		m.since = time.Now()
		observeState(s)
	}
	m.mu.Unlock()
	if changed {
		m.log.Debug().Str("from", string(prev)).Str("to", string(s)).Msg("state")
		m.publisher.Publish(Event{Name: EventState, ModelID: m.model, Fields: map[string]any{"from": string(prev), "to": string(s)}})
	}
}

func (m *Manager) setErr(err error) {
	m.mu.Lock()
	if err == nil {
		m.err = ""
	} else {
		m.err = err.Error()
	}
	m.mu.Unlock()
}
