package driven

import "context"

// Oracle is the external analysis capability that judges contract text.
// Its output is free-form text that usually, but not always, contains a JSON object.
//
// Implementations may include:
//   - Anthropic (Claude)
//   - OpenAI (GPT-4o)
//   - Google Gemini
//   - Ollama (local models)
//
// API failures must be returned as *domain.OracleError so the retry policy
// can tell rate limits and overloads apart from fatal errors.
type Oracle interface {
	// Analyze sends one prompt and returns the raw answer text.
	Analyze(ctx context.Context, prompt OraclePrompt) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// OraclePrompt is a single Oracle request.
type OraclePrompt struct {
	// System carries the instructions and the expected output schema.
	System string

	// User carries the contract text or the partial records to merge.
	User string
}
