package interfaces

import "context"

// Message is a single chat turn sent to the LLM provider
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// LLMService is the external language-model provider surface: JSON-mode chat
// completion and batch embeddings over an OpenAI-compatible HTTP API.
type LLMService interface {
	// ChatJSON requests a completion with response_format json_object
	ChatJSON(ctx context.Context, messages []Message) (string, error)
	// Embed returns one embedding per input, in order
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	ModelName() string
	HealthCheck(ctx context.Context) error
}
