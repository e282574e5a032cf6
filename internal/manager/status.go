package manager

import (
	"context"
	"fmt"

	"modelgate/pkg/types"
)

// Status evaluates readiness from scratch and reports it. A missing daemon is
// launched inline; a missing model starts one background download and the
// call returns immediately with loading_model. Status never fails: every
// problem is folded into the payload.
func (m *Manager) Status(ctx context.Context) types.StatusResponse {
	resp := types.StatusResponse{InstanceID: m.instanceID}

	if err := m.ensureDaemon(ctx); err != nil {
		resp.Status, resp.Message = StatusStarting, msgStarting
		return resp
	}

	present, err := m.catalog.Lookup(ctx, m.model)
	if err != nil {
		m.log.Warn().Err(err).Msg("model list query failed")
		m.setErr(err)
		m.setState(StateUninitialized)
		resp.Status, resp.Message = StatusInitializing, msgInitializing
		return resp
	}
	if present {
		m.markReady()
		resp.Ready, resp.Status, resp.Message, resp.Model = true, StatusReady, msgReady, m.model
		return resp
	}

	m.startFetch()
	resp.Status = StatusLoadingModel
	resp.Progress = m.Snapshot().Progress
	resp.Message = downloadingMessage(m.model, resp.Progress)
	return resp
}

// Bootstrap runs one readiness evaluation, typically at process start, so the
// daemon is launched and the download begun before the first request.
func (m *Manager) Bootstrap(ctx context.Context) {
	st := m.Status(ctx)
	m.log.Info().Str("status", st.Status).Msg(st.Message)
}

// ensureDaemon probes the daemon and launches it when down.
func (m *Manager) ensureDaemon(ctx context.Context) error {
	if m.probe.Alive(ctx) {
		return nil
	}
	m.setState(StateDaemonStarting)
	m.log.Info().Msg("daemon not running, starting")
	m.publisher.Publish(Event{Name: EventLaunchStart, ModelID: m.model})
	res, err := m.launcher.Start(ctx)
	if err != nil {
		launchesTotal.WithLabelValues("failed").Inc()
		m.log.Error().Err(err).Msg("daemon launch failed")
		m.publisher.Publish(Event{Name: EventLaunchFailed, ModelID: m.model, Fields: map[string]any{"error": err.Error()}})
		m.setErr(err)
		return ErrDaemonUnreachable(err)
	}
	launchesTotal.WithLabelValues(string(res)).Inc()
	m.publisher.Publish(Event{Name: EventLaunchReady, ModelID: m.model, Fields: map[string]any{"result": string(res)}})
	return nil
}

func (m *Manager) markReady() {
	m.mu.Lock()
	m.progress = nil
	m.err = ""
	m.mu.Unlock()
	m.setState(StateReady)
}

func downloadingMessage(model string, progress *float64) string {
	if progress != nil {
		return fmt.Sprintf("Downloading model %s (%.0f%%). This may take a few minutes...", model, *progress)
	}
	return fmt.Sprintf("Downloading model %s. This may take a few minutes...", model)
}
