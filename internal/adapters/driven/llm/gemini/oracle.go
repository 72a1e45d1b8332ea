// Package gemini provides an Oracle adapter using Google's Gemini API through the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/custodia-labs/dpa-check/internal/adapters/driven/llm"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
)

// Ensure Oracle implements the interface.
var _ driven.Oracle = (*Oracle)(nil)

// Default configuration values.
const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 120 * time.Second

	providerName = "gemini"
)

// Config holds configuration for the Gemini Oracle.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// BaseURL overrides the API endpoint, mainly for tests and proxies.
	BaseURL string

	// Model is the model to use (default: gemini-2.0-flash).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// MaxTokens bounds the answer length; 0 uses the model default.
	MaxTokens int

	// Temperature controls randomness.
	Temperature float64
}

// Oracle analyses contract text with a Gemini model.
type Oracle struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

// New creates a new Gemini Oracle.
func New(ctx context.Context, cfg Config) (*Oracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimSuffix(cfg.BaseURL, "/") + "/"}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Oracle{
		client:      client,
		model:       cfg.Model,
		maxTokens:   int32(cfg.MaxTokens), //nolint:gosec // bounded by settings validation
		temperature: float32(cfg.Temperature),
	}, nil
}

// Analyze sends one prompt with JSON output requested.
func (o *Oracle) Analyze(ctx context.Context, prompt driven.OraclePrompt) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(o.temperature),
		ResponseMIMEType: "application/json",
	}
	if o.maxTokens > 0 {
		config.MaxOutputTokens = o.maxTokens
	}
	if prompt.System != "" {
		config.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt.User, genai.RoleUser),
	}

	resp, err := o.client.Models.GenerateContent(ctx, o.model, contents, config)
	if err != nil {
		return "", classify(err)
	}

	text := resp.Text()
	if text == "" {
		reason := "no candidates"
		if len(resp.Candidates) > 0 {
			reason = "finish reason " + string(resp.Candidates[0].FinishReason)
		}
		return "", llm.InvalidResponse(providerName, "empty response (%s)", reason)
	}
	return text, nil
}

// classify maps SDK errors onto Oracle failure kinds.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.StatusError(providerName, apiErr.Code, apiErr.Status, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return llm.StatusError(providerName, apiErrPtr.Code, apiErrPtr.Status, apiErrPtr.Message)
	}
	return llm.TransportError(providerName, err)
}

// ModelName returns the name of the model being used.
func (o *Oracle) ModelName() string {
	return o.model
}

// Ping validates the API key by fetching the model description.
func (o *Oracle) Ping(ctx context.Context) error {
	if _, err := o.client.Models.Get(ctx, o.model, nil); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", classify(err))
	}
	return nil
}

// Close releases resources.
func (o *Oracle) Close() error {
	// The SDK client holds no resources beyond its HTTP client
	return nil
}
