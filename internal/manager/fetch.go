package manager

import (
	"context"
	"fmt"

	"modelgate/pkg/types"
)

// startFetch marks the model missing and, unless a download is already in
// flight, starts one in the background. It returns the ticket of the running
// download, which callers may wait on.
func (m *Manager) startFetch() *Ticket {
	t, owner := m.guard.TryAcquire(m.model)
	if !owner {
		m.setState(StateModelDownloading)
		return t
	}
	m.setState(StateModelMissing)
	m.setState(StateModelDownloading)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runFetch(t)
	}()
	return t
}

// runFetch downloads the model and releases t on every exit path.
func (m *Manager) runFetch(t *Ticket) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panic: %v", r)
			m.log.Error().Interface("panic", r).Msg("fetch panicked")
		}
		m.finishFetch(err)
		t.Release(err)
	}()

	ctx, cancel := context.WithTimeout(m.baseCtx, m.fetchTO)
	defer cancel()

	fetchInflight.Inc()
	defer fetchInflight.Dec()
	m.log.Info().Msg("model missing, downloading")
	m.publisher.Publish(Event{Name: EventFetchStart, ModelID: m.model})
	if perr := m.fetcher.Pull(ctx, m.model, m.onProgress); perr != nil {
		err = ErrFetchFailed(m.model, perr)
	}
}

func (m *Manager) finishFetch(err error) {
	m.mu.Lock()
	m.progress = nil
	m.mu.Unlock()
	if err != nil {
		fetchesTotal.WithLabelValues("failed").Inc()
		m.log.Error().Err(err).Msg("model download failed")
		m.publisher.Publish(Event{Name: EventFetchFailed, ModelID: m.model, Fields: map[string]any{"error": err.Error()}})
		m.setErr(err)
		m.setStateIf(StateModelDownloading, StateModelMissing)
		return
	}
	fetchesTotal.WithLabelValues("success").Inc()
	m.log.Info().Msg("model download finished")
	m.publisher.Publish(Event{Name: EventFetchDone, ModelID: m.model})
	m.setErr(nil)
	if m.catalog.HasModel(m.baseCtx, m.model) {
		m.setStateIf(StateModelDownloading, StateReady)
		return
	}
	m.setStateIf(StateModelDownloading, StateModelMissing)
}

func (m *Manager) onProgress(p types.PullProgress) {
	if p.Total <= 0 {
		return
	}
	pct := float64(p.Completed) / float64(p.Total) * 100
	if pct > 100 {
		pct = 100
	}
	m.mu.Lock()
	m.progress = &pct
	m.mu.Unlock()
	m.publisher.Publish(Event{Name: EventFetchProgress, ModelID: m.model, Fields: map[string]any{"status": p.Status, "percent": pct}})
}
