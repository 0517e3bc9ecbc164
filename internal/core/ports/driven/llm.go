// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService generates text for query rewriting, context compression and
// answer generation.
//
// Implementations may include:
//   - Gemini (google.golang.org/genai)
//   - OpenAI (GPT-4o)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Generate produces a completion for the request.
	Generate(ctx context.Context, req GenerateRequest) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateRequest configures one generation call.
type GenerateRequest struct {
	// System is an optional instruction sent ahead of the prompt.
	System string

	// Prompt is the user text.
	Prompt string

	// MaxTokens is the maximum number of tokens to generate.
	// Zero leaves the provider default.
	MaxTokens int

	// Temperature controls randomness. Nil leaves the provider default;
	// a pointer to 0 requests deterministic output.
	Temperature *float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

// Temperature returns a pointer to t for use in GenerateRequest.
func Temperature(t float64) *float64 {
	return &t
}
