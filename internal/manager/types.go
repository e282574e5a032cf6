package manager

import "time"

// State is the coordinator's view of the daemon and the target model.
type State string

const (
	StateUninitialized    State = "uninitialized"
	StateDaemonStarting   State = "daemon_starting"
	StateModelMissing     State = "model_missing"
	StateModelDownloading State = "model_downloading"
	StateReady            State = "ready"
)

// Status codes reported by /api/status.
const (
	StatusStarting     = "starting"
	StatusReady        = "ready"
	StatusLoadingModel = "loading_model"
	StatusInitializing = "initializing"
)

// Status messages.
const (
	msgStarting     = "Starting Ollama service..."
	msgReady        = "Ollama is ready"
	msgInitializing = "Initializing Ollama. Please wait..."
)

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State    State
	Model    string
	Since    time.Time
	Fetching bool
	Progress *float64
	Err      string
}
