package manager

import (
	"context"
	"errors"

	"modelgate/internal/ollama"
)

const msgTimeout = "Request timed out. The model may be taking too long to respond."

// Chat makes the daemon and the model ready, then forwards prompt. Unlike
// Status it waits for a missing model to download. Errors carry the
// caller-facing message; only IsInvalidRequest errors reject the request
// itself.
func (m *Manager) Chat(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrInvalidRequest("Prompt is required")
	}
	if err := m.ensureDaemon(ctx); err != nil {
		return "", err
	}
	if err := m.ensureModel(ctx); err != nil {
		return "", err
	}
	return m.forward(ctx, prompt)
}

// ensureModel returns once the model is present, downloading it (or joining
// the download in flight) when it is not.
func (m *Manager) ensureModel(ctx context.Context) error {
	if m.catalog.HasModel(ctx, m.model) {
		m.markReady()
		return nil
	}
	if err := m.fetchAndWait(ctx); err != nil {
		if ctx.Err() != nil {
			return classifyForwardError(ctx.Err())
		}
		return ErrModelAbsent(m.model, err)
	}
	if !m.catalog.HasModel(ctx, m.model) {
		return ErrModelAbsent(m.model, nil)
	}
	m.markReady()
	return nil
}

func (m *Manager) fetchAndWait(ctx context.Context) error {
	return m.startFetch().Wait(ctx)
}

// forward calls generate; a model-not-found reply triggers exactly one
// download and one retry.
func (m *Manager) forward(ctx context.Context, prompt string) (string, error) {
	out, err := m.generator.Generate(ctx, m.model, prompt)
	if err == nil {
		forwardsTotal.WithLabelValues("success").Inc()
		return out, nil
	}
	if !ollama.IsModelNotFound(err) {
		return "", m.forwardFailed(err)
	}

	m.log.Warn().Msg("daemon reports model not found, downloading and retrying once")
	m.publisher.Publish(Event{Name: EventForwardRetry, ModelID: m.model})
	m.setState(StateModelMissing)
	if ferr := m.fetchAndWait(ctx); ferr != nil {
		if ctx.Err() != nil {
			return "", m.forwardFailed(ctx.Err())
		}
		forwardsTotal.WithLabelValues("model_absent").Inc()
		return "", ErrModelAbsent(m.model, ferr)
	}
	out, err = m.generator.Generate(ctx, m.model, prompt)
	if err == nil {
		m.markReady()
		forwardsTotal.WithLabelValues("retry_success").Inc()
		return out, nil
	}
	if ollama.IsModelNotFound(err) {
		forwardsTotal.WithLabelValues("model_absent").Inc()
		return "", ErrModelAbsent(m.model, err)
	}
	return "", m.forwardFailed(err)
}

func (m *Manager) forwardFailed(err error) error {
	ferr := classifyForwardError(err)
	result := "error"
	switch {
	case ollama.IsTimeout(err):
		result = "timeout"
	case isStatusError(err):
		result = "daemon_error"
	}
	forwardsTotal.WithLabelValues(result).Inc()
	m.log.Error().Err(err).Str("result", result).Msg("forward failed")
	return ferr
}

func classifyForwardError(err error) error {
	if ollama.IsTimeout(err) {
		return ErrForward(msgTimeout, err)
	}
	var se *ollama.StatusError
	if errors.As(err, &se) {
		return ErrForward("Ollama error: "+se.Body, err)
	}
	return ErrForward("Error: "+err.Error(), err)
}

func isStatusError(err error) bool {
	var se *ollama.StatusError
	return errors.As(err, &se)
}
