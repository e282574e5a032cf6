package manager

// Event represents a manager lifecycle event.
// Minimal and stable: name + model ID and optional fields via key/values.
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
}

// Event names.
const (
	EventLaunchStart   = "launch_start"
	EventLaunchReady   = "launch_ready"
	EventLaunchFailed  = "launch_failed"
	EventFetchStart    = "fetch_start"
	EventFetchProgress = "fetch_progress"
	EventFetchDone     = "fetch_done"
	EventFetchFailed   = "fetch_failed"
	EventState         = "state"
	EventForwardRetry  = "forward_retry"
)

// EventPublisher receives events from the manager. Publish is called inline
// and must not block or panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
