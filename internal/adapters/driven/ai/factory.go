// Package ai provides factory functions for creating Oracle adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/dpa-check/internal/adapters/driven/llm/anthropic"
	"github.com/custodia-labs/dpa-check/internal/adapters/driven/llm/gemini"
	"github.com/custodia-labs/dpa-check/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/dpa-check/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/dpa-check/internal/adapters/driven/llm/ratelimit"
	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 10 * time.Second

// CreateAndValidateOracle creates the configured Oracle, throttles it, and
// validates connectivity.
func CreateAndValidateOracle(ctx context.Context, settings *domain.AppSettings) (driven.Oracle, error) {
	if settings == nil || !settings.LLM.IsConfigured() {
		return nil, fmt.Errorf("%w: no LLM provider configured. Run 'dpa-check settings llm' to fix",
			domain.ErrOracleUnavailable)
	}

	oracle, err := CreateOracle(ctx, &settings.LLM)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'dpa-check settings llm' to fix",
			domain.ErrOracleUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := oracle.Ping(pingCtx); err != nil {
		_ = oracle.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'dpa-check settings llm' to fix",
			domain.ErrOracleUnavailable, err)
	}

	return ratelimit.Wrap(oracle, settings.RateLimit), nil
}

// ValidateLLMConfig validates an LLM configuration by creating an Oracle and pinging it.
// This is intended for the settings command to validate credentials on configuration.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	oracle, err := CreateOracle(ctx, settings)
	if err != nil {
		return err
	}
	defer oracle.Close()

	return oracle.Ping(ctx)
}

// CreateOracle creates the Oracle adapter for the configured provider.
func CreateOracle(ctx context.Context, settings *domain.LLMSettings) (driven.Oracle, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("LLM provider not configured")
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllama(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAI(settings)

	case domain.AIProviderAnthropic:
		return createAnthropic(settings)

	case domain.AIProviderGemini:
		return createGemini(ctx, settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// createOllama creates an Ollama Oracle.
func createOllama(settings *domain.LLMSettings) driven.Oracle {
	return ollama.New(ollama.Config{
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		Timeout:     settings.Timeout,
		MaxTokens:   settings.MaxOutputTokens,
		Temperature: settings.Temperature,
	})
}

// createOpenAI creates an OpenAI Oracle.
func createOpenAI(settings *domain.LLMSettings) (driven.Oracle, error) {
	oracle, err := openai.New(openai.Config{
		APIKey:      settings.APIKey,
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		Timeout:     settings.Timeout,
		MaxTokens:   settings.MaxOutputTokens,
		Temperature: settings.Temperature,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}
	return oracle, nil
}

// createAnthropic creates an Anthropic Oracle.
func createAnthropic(settings *domain.LLMSettings) (driven.Oracle, error) {
	oracle, err := anthropic.New(anthropic.Config{
		APIKey:      settings.APIKey,
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		Timeout:     settings.Timeout,
		MaxTokens:   settings.MaxOutputTokens,
		Temperature: settings.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return oracle, nil
}

// createGemini creates a Gemini Oracle.
func createGemini(ctx context.Context, settings *domain.LLMSettings) (driven.Oracle, error) {
	oracle, err := gemini.New(ctx, gemini.Config{
		APIKey:      settings.APIKey,
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		Timeout:     settings.Timeout,
		MaxTokens:   settings.MaxOutputTokens,
		Temperature: settings.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return oracle, nil
}
