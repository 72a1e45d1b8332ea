package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies the service that acts as the Oracle.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// LLMSettings holds Oracle provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible gateways).
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// Timeout bounds a single Oracle call.
	Timeout time.Duration `validate:"gte=0"`

	// MaxOutputTokens bounds the length of one Oracle answer.
	MaxOutputTokens int `validate:"gte=256,lte=65536"`

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64 `validate:"gte=0,lte=1"`
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// AnalysisSettings controls chunking and fan-out.
type AnalysisSettings struct {
	// TargetTokens is the preferred chunk size.
	TargetTokens int `validate:"gte=100"`

	// HardMaxTokens is the ceiling no chunk may exceed.
	HardMaxTokens int `validate:"gtefield=TargetTokens"`

	// MaxChunks caps the number of Oracle analysis calls per request.
	MaxChunks int `validate:"gte=1,lte=200"`

	// Concurrency is the number of chunk analyses in flight (1 = sequential).
	Concurrency int `validate:"gte=1,lte=16"`

	// MinTextChars is the minimum number of non-space characters a document needs.
	MinTextChars int `validate:"gte=0"`
}

// RetrySettings configures exponential backoff for Oracle calls.
type RetrySettings struct {
	// MaxRetries is the retry ceiling after the first attempt.
	MaxRetries int `validate:"gte=0,lte=10"`

	// BaseDelay is the first backoff delay; each retry doubles it.
	BaseDelay time.Duration `validate:"gt=0"`

	// MaxDelay bounds any single backoff delay. It must leave room for every
	// retry to wait longer than the one before, see UncappedDelay.
	MaxDelay time.Duration `validate:"gtfield=BaseDelay"`
}

// UncappedDelay returns the wait before the last retry with no MaxDelay cap:
// BaseDelay * 2^(MaxRetries-1). It is 0 when no retries are allowed.
func (r RetrySettings) UncappedDelay() time.Duration {
	if r.MaxRetries <= 0 || r.BaseDelay <= 0 {
		return 0
	}
	return r.BaseDelay << (r.MaxRetries - 1)
}

// RateLimitSettings throttles Oracle calls. A zero rate disables throttling.
type RateLimitSettings struct {
	RequestsPerSecond float64 `validate:"gte=0"`
	Burst             int     `validate:"gte=0"`
}

// ServerSettings configures the HTTP request boundary.
type ServerSettings struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// MaxUploadBytes bounds accepted request bodies.
	MaxUploadBytes int64 `validate:"gte=1024"`
}

// AppSettings aggregates all application settings.
type AppSettings struct {
	LLM       LLMSettings
	Analysis  AnalysisSettings
	Retry     RetrySettings
	RateLimit RateLimitSettings
	Server    ServerSettings
}

// DefaultAppSettings returns the default settings.
// The LLM provider is left unconfigured; users set it via settings or environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		LLM: LLMSettings{
			Timeout:         120 * time.Second,
			MaxOutputTokens: 4096,
			Temperature:     0.1,
		},
		Analysis: AnalysisSettings{
			TargetTokens:  6000,
			HardMaxTokens: 8000,
			MaxChunks:     12,
			Concurrency:   1,
			MinTextChars:  200,
		},
		Retry: RetrySettings{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   8 * time.Second,
		},
		RateLimit: RateLimitSettings{
			RequestsPerSecond: 2,
			Burst:             2,
		},
		Server: ServerSettings{
			Addr:           ":8080",
			MaxUploadBytes: 32 << 20,
		},
	}
}

// AllLLMProviders returns providers that can act as the Oracle.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGemini,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-2.0-flash",
	}
}
