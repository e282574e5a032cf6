package types

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// Always "healthy" while the process serves HTTP.
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// Identity of the responding instance.
	// example: web-1
	InstanceID string `json:"instance_id" example:"web-1"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	// True once the daemon is reachable and the model is present.
	// example: false
	Ready bool `json:"ready" example:"false"`
	// One of starting, ready, loading_model, initializing.
	// example: loading_model
	Status string `json:"status" example:"loading_model"`
	// Human-readable description of the current state.
	// example: Downloading model gemma:2b. This may take a few minutes...
	Message string `json:"message" example:"Downloading model gemma:2b. This may take a few minutes..."`
	// Model served by this instance. Only set when ready.
	// example: gemma:2b
	Model string `json:"model,omitempty" example:"gemma:2b"`
	// Download progress in percent while the model is being fetched.
	// example: 42.5
	Progress *float64 `json:"progress,omitempty" example:"42.5"`
	// Identity of the responding instance.
	// example: web-1
	InstanceID string `json:"instance_id" example:"web-1"`
}

// WhoAmIResponse is returned by GET /api/whoami.
type WhoAmIResponse struct {
	// Client address as seen by the proxy.
	// example: 203.0.113.7
	YourIP string `json:"your_ip" example:"203.0.113.7"`
	// Identity of the responding instance.
	// example: web-1
	InstanceID string `json:"instance_id" example:"web-1"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	// Required prompt text.
	// example: Why is the sky blue?
	Prompt string `json:"prompt" example:"Why is the sky blue?"`
}

// ChatResponse is returned by POST /api/chat. The server writes it for
// successes and ChatFailure otherwise; clients decode either into it.
type ChatResponse struct {
	// Whether a completion was produced.
	// example: true
	Success bool `json:"success" example:"true"`
	// Generated text, possibly empty.
	Response string `json:"response"`
	// Model that produced the response.
	// example: gemma:2b
	Model string `json:"model,omitempty" example:"gemma:2b"`
	// Failure description when Success is false.
	// example: Prompt is required
	Message string `json:"message,omitempty" example:"Prompt is required"`
	// Identity of the responding instance.
	// example: web-1
	InstanceID string `json:"instance_id" example:"web-1"`
}

// ChatFailure is returned by POST /api/chat when no completion was
// produced: with 400 for an invalid request, else with 200.
type ChatFailure struct {
	// Always false.
	// example: false
	Success bool `json:"success" example:"false"`
	// example: Prompt is required
	Message string `json:"message" example:"Prompt is required"`
	// example: web-1
	InstanceID string `json:"instance_id" example:"web-1"`
}

// ErrorResponse is returned for routing errors (unknown path, wrong method).
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
	Code  int    `json:"code" example:"404"`
}
