package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider AIProvider
		expected bool
	}{
		{"ollama is valid", AIProviderOllama, true},
		{"openai is valid", AIProviderOpenAI, true},
		{"anthropic is valid", AIProviderAnthropic, true},
		{"gemini is valid", AIProviderGemini, true},
		{"empty is invalid", AIProvider(""), false},
		{"unknown is invalid", AIProvider("mistral"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
	assert.True(t, AIProviderGemini.RequiresAPIKey())
}

func TestAIProvider_Description(t *testing.T) {
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
	assert.Equal(t, "Google Gemini (cloud)", AIProviderGemini.Description())
	assert.Equal(t, "Unknown", AIProvider("x").Description())
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings LLMSettings
		expected bool
	}{
		{"empty", LLMSettings{}, false},
		{"ollama without key", LLMSettings{Provider: AIProviderOllama}, true},
		{"anthropic without key", LLMSettings{Provider: AIProviderAnthropic}, false},
		{"anthropic with key", LLMSettings{Provider: AIProviderAnthropic, APIKey: "sk-ant"}, true},
		{"invalid provider", LLMSettings{Provider: "nope", APIKey: "k"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.False(t, s.LLM.IsConfigured())
	assert.Equal(t, 6000, s.Analysis.TargetTokens)
	assert.GreaterOrEqual(t, s.Analysis.HardMaxTokens, s.Analysis.TargetTokens)
	assert.Equal(t, 1, s.Analysis.Concurrency)
	assert.Equal(t, 3, s.Retry.MaxRetries)
	assert.Equal(t, time.Second, s.Retry.BaseDelay)
	assert.Greater(t, s.Retry.MaxDelay, s.Retry.BaseDelay)
	assert.GreaterOrEqual(t, s.Retry.MaxDelay, s.Retry.UncappedDelay())
}

func TestRetrySettings_UncappedDelay(t *testing.T) {
	assert.Zero(t, RetrySettings{BaseDelay: time.Second}.UncappedDelay())
	assert.Equal(t, time.Second, RetrySettings{MaxRetries: 1, BaseDelay: time.Second}.UncappedDelay())
	assert.Equal(t, 4*time.Second, RetrySettings{MaxRetries: 3, BaseDelay: time.Second}.UncappedDelay())
}

func TestDefaultLLMModels_CoverAllProviders(t *testing.T) {
	models := DefaultLLMModels()
	for _, p := range AllLLMProviders() {
		assert.NotEmpty(t, models[p], "provider %s has no default model", p)
	}
}
