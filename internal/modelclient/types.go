// Package modelclient is a blocking HTTP client for the Ollama-compatible
// model server: connection pooling, a circuit breaker, and
// context-cancellation-aware request dispatch, covering embedding, chat,
// and streaming chat.
package modelclient

import "time"

// DefaultBaseURL is used when no override is configured.
const DefaultBaseURL = "http://127.0.0.1:11434/api"

// DefaultTimeout is the shared request timeout absent an override.
const DefaultTimeout = 300 * time.Second

// DefaultPoolSize bounds idle HTTP connections kept per host.
const DefaultPoolSize = 4

// DefaultBreakerTripThreshold is the number of consecutive failed calls
// (any error, including non-2xx responses) before the circuit breaker opens.
const DefaultBreakerTripThreshold = 5

// DefaultBreakerCooldown is how long the breaker stays open once tripped.
const DefaultBreakerCooldown = 30 * time.Second

// Config configures a Client.
type Config struct {
	BaseURL             string
	Timeout             time.Duration
	PoolSize            int
	BreakerTripThreshold int
	BreakerCooldown     time.Duration
}

// DefaultConfig returns the zero-configuration defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:              DefaultBaseURL,
		Timeout:              DefaultTimeout,
		PoolSize:             DefaultPoolSize,
		BreakerTripThreshold: DefaultBreakerTripThreshold,
		BreakerCooldown:      DefaultBreakerCooldown,
	}
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// embedRequest is the /api/embed request body.
type embedRequest struct {
	Model    string `json:"model"`
	Input    any    `json:"input"` // string or []string
	Truncate bool   `json:"truncate"`
}

// embedResponse is the /api/embed response body.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// chatRequest is the /api/chat request body.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// chatResponse is one /api/chat response record (streamed or not).
type chatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error"`
}

// ModelInfo describes one installed model, as returned by /api/tags.
type ModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}

type modelListResponse struct {
	Models []ModelInfo `json:"models"`
}
