package services

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dpa-check/internal/adapters/driven/config/file"
	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

// mockAIValidator implements driven.AIConfigValidator for testing.
type mockAIValidator struct {
	err    error
	called *domain.LLMSettings
}

func (m *mockAIValidator) ValidateLLM(settings *domain.LLMSettings) error {
	m.called = settings
	return m.err
}

// clearEnv unsets variables that would leak into settings from the test environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DPA_LLM_PROVIDER", "DPA_LLM_MODEL", "DPA_LLM_BASE_URL", "DPA_LLM_API_KEY",
		"LLM_PROVIDER", "LLM_MODEL", "LLM_BASE_URL", "LLM_API_KEY",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
		"DPA_ANALYSIS_MAX_CHUNKS", "ANALYSIS_MAX_CHUNKS", "DPA_SERVER_ADDR", "SERVER_ADDR",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func newStore(t *testing.T) *file.ConfigStore {
	t.Helper()
	store, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func newSettings(t *testing.T) (*SettingsService, *file.ConfigStore) {
	t.Helper()
	clearEnv(t)
	store := newStore(t)
	return NewSettingsService(store, nil), store
}

func TestNewSettingsService(t *testing.T) {
	service, _ := newSettings(t)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service, _ := newSettings(t)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults, *settings)
	assert.False(t, settings.LLM.IsConfigured())
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	service, store := newSettings(t)
	_ = store.Set("llm.provider", "openai")
	_ = store.Set("llm.model", "gpt-4o")
	_ = store.Set("llm.api_key", "sk-test")
	_ = store.Set("llm.timeout_seconds", 30)
	_ = store.Set("llm.temperature", 0.0)
	_ = store.Set("analysis.target_tokens", 3000)
	_ = store.Set("analysis.max_chunks", 4)
	_ = store.Set("analysis.concurrency", 2)
	_ = store.Set("retry.max_retries", 0)
	_ = store.Set("retry.base_delay_ms", 250)
	_ = store.Set("ratelimit.requests_per_second", 0.5)
	_ = store.Set("server.addr", "127.0.0.1:9000")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.LLM.Provider)
	assert.Equal(t, "gpt-4o", settings.LLM.Model)
	assert.Equal(t, "sk-test", settings.LLM.APIKey)
	assert.Equal(t, 30*time.Second, settings.LLM.Timeout)
	assert.Zero(t, settings.LLM.Temperature)
	assert.Equal(t, 3000, settings.Analysis.TargetTokens)
	assert.Equal(t, 4, settings.Analysis.MaxChunks)
	assert.Equal(t, 2, settings.Analysis.Concurrency)
	assert.Zero(t, settings.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, settings.Retry.BaseDelay)
	assert.Equal(t, 0.5, settings.RateLimit.RequestsPerSecond)
	assert.Equal(t, "127.0.0.1:9000", settings.Server.Addr)
}

func TestSettingsService_Get_InvalidProviderReturnsDefault(t *testing.T) {
	service, store := newSettings(t)
	_ = store.Set("llm.provider", "invalid_provider")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProvider(""), settings.LLM.Provider)
}

func TestSettingsService_Save(t *testing.T) {
	service, store := newSettings(t)

	settings := domain.DefaultAppSettings()
	settings.LLM.Provider = domain.AIProviderAnthropic
	settings.LLM.Model = "claude-3-5-haiku-latest"
	settings.LLM.APIKey = "sk-ant"
	settings.Analysis.MaxChunks = 20
	settings.Retry.BaseDelay = 500 * time.Millisecond

	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "anthropic", store.GetString("llm.provider"))
	assert.Equal(t, "claude-3-5-haiku-latest", store.GetString("llm.model"))
	assert.Equal(t, "sk-ant", store.GetString("llm.api_key"))
	assert.Equal(t, 20, store.GetInt("analysis.max_chunks"))
	assert.Equal(t, 500, store.GetInt("retry.base_delay_ms"))
	assert.Equal(t, 120, store.GetInt("llm.timeout_seconds"))

	loaded, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *loaded)
}

func TestSettingsService_Save_EmptyAPIKeyKeepsStored(t *testing.T) {
	service, store := newSettings(t)
	_ = store.Set("llm.api_key", "existing-key")

	settings := domain.DefaultAppSettings()
	settings.LLM.Provider = domain.AIProviderOpenAI
	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "existing-key", store.GetString("llm.api_key"))
}

func TestSettingsService_Save_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.AppSettings)
	}{
		{"ceiling below target", func(s *domain.AppSettings) { s.Analysis.HardMaxTokens = s.Analysis.TargetTokens - 1 }},
		{"no chunks", func(s *domain.AppSettings) { s.Analysis.MaxChunks = 0 }},
		{"too many retries", func(s *domain.AppSettings) { s.Retry.MaxRetries = 11 }},
		{"max delay below base", func(s *domain.AppSettings) { s.Retry.MaxDelay = time.Millisecond }},
		{"max delay equal to base", func(s *domain.AppSettings) { s.Retry.MaxDelay = s.Retry.BaseDelay }},
		{"max delay below last backoff", func(s *domain.AppSettings) {
			s.Retry.MaxRetries = 3
			s.Retry.BaseDelay = time.Second
			s.Retry.MaxDelay = 2 * time.Second
		}},
		{"temperature", func(s *domain.AppSettings) { s.LLM.Temperature = 1.5 }},
		{"unknown provider", func(s *domain.AppSettings) { s.LLM.Provider = "mistral" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store := newSettings(t)
			settings := domain.DefaultAppSettings()
			tt.mutate(&settings)

			err := service.Save(&settings)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			_, stored := store.Get("analysis.max_chunks")
			assert.False(t, stored)
		})
	}
}

func TestSettingsService_SetLLMProvider_Ollama(t *testing.T) {
	service, _ := newSettings(t)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "", ""))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.LLM.Provider)
	assert.Equal(t, "llama3.2", settings.LLM.Model)
	assert.Equal(t, "http://localhost:11434", settings.LLM.BaseURL)
	assert.True(t, settings.LLM.IsConfigured())
}

func TestSettingsService_SetLLMProvider_Cloud(t *testing.T) {
	service, store := newSettings(t)
	_ = store.Set("llm.base_url", "http://localhost:11434")

	require.NoError(t, service.SetLLMProvider(domain.AIProviderGemini, "gemini-1.5-pro", "g-key"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderGemini, settings.LLM.Provider)
	assert.Equal(t, "gemini-1.5-pro", settings.LLM.Model)
	assert.Equal(t, "g-key", settings.LLM.APIKey)
	assert.Empty(t, settings.LLM.BaseURL)
}

func TestSettingsService_SetLLMProvider_PreservesExistingBaseURL(t *testing.T) {
	service, store := newSettings(t)
	_ = store.Set("llm.base_url", "http://gpu-box:11434")

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "qwen2.5", ""))

	assert.Equal(t, "http://gpu-box:11434", store.GetString("llm.base_url"))
}

func TestSettingsService_SetLLMProvider_Errors(t *testing.T) {
	service, _ := newSettings(t)

	err := service.SetLLMProvider(domain.AIProviderAnthropic, "", "")
	assert.ErrorContains(t, err, "API key required")

	err = service.SetLLMProvider("invalid", "", "")
	assert.ErrorContains(t, err, "invalid LLM provider")
}

func TestSettingsService_SetLLMProvider_DoesNotPersistEnv(t *testing.T) {
	service, store := newSettings(t)
	t.Setenv("DPA_ANALYSIS_MAX_CHUNKS", "3")

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "", ""))

	assert.Equal(t, domain.DefaultAppSettings().Analysis.MaxChunks, store.GetInt("analysis.max_chunks"))
}

func TestSettingsService_Get_EnvOverrides(t *testing.T) {
	service, store := newSettings(t)
	_ = store.Set("llm.provider", "ollama")
	_ = store.Set("llm.model", "llama3.2")
	t.Setenv("DPA_LLM_PROVIDER", "openai")
	t.Setenv("DPA_LLM_MODEL", "gpt-4.1")
	t.Setenv("DPA_ANALYSIS_MAX_CHUNKS", "5")
	t.Setenv("DPA_SERVER_ADDR", ":9999")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.LLM.Provider)
	assert.Equal(t, "gpt-4.1", settings.LLM.Model)
	assert.Equal(t, "sk-env", settings.LLM.APIKey)
	assert.Equal(t, 5, settings.Analysis.MaxChunks)
	assert.Equal(t, ":9999", settings.Server.Addr)
}

func TestSettingsService_Get_EnvProviderUsesDefaultModel(t *testing.T) {
	service, _ := newSettings(t)
	t.Setenv("DPA_LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-sonnet-latest", settings.LLM.Model)
	assert.Equal(t, "sk-ant-env", settings.LLM.APIKey)
	assert.True(t, settings.LLM.IsConfigured())
}

func TestSettingsService_Get_StoredKeyWinsOverProviderEnv(t *testing.T) {
	service, store := newSettings(t)
	_ = store.Set("llm.provider", "gemini")
	_ = store.Set("llm.api_key", "stored")
	t.Setenv("GEMINI_API_KEY", "from-env")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "stored", settings.LLM.APIKey)
}

func TestSettingsService_Get_BadEnvValue(t *testing.T) {
	service, _ := newSettings(t)
	t.Setenv("DPA_ANALYSIS_MAX_CHUNKS", "many")

	_, err := service.Get()

	assert.ErrorContains(t, err, "read environment")
}

func TestSettingsService_WithoutEnv(t *testing.T) {
	service, _ := newSettings(t)
	t.Setenv("DPA_LLM_PROVIDER", "openai")

	settings, err := service.WithoutEnv().Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProvider(""), settings.LLM.Provider)
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("unconfigured", func(t *testing.T) {
		service, _ := newSettings(t)
		assert.ErrorIs(t, service.Validate(), domain.ErrOracleUnavailable)
	})

	t.Run("configured", func(t *testing.T) {
		service, _ := newSettings(t)
		require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "", ""))
		assert.NoError(t, service.Validate())
	})

	t.Run("invalid stored values", func(t *testing.T) {
		service, store := newSettings(t)
		require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "", ""))
		_ = store.Set("analysis.concurrency", 64)
		assert.ErrorIs(t, service.Validate(), domain.ErrInvalidInput)
	})
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service, _ := newSettings(t)

	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

func TestSettingsService_ValidateLLMConfig(t *testing.T) {
	t.Run("no validator", func(t *testing.T) {
		service, _ := newSettings(t)
		assert.NoError(t, service.ValidateLLMConfig())
	})

	t.Run("delegates", func(t *testing.T) {
		clearEnv(t)
		store := newStore(t)
		_ = store.Set("llm.provider", "ollama")
		validator := &mockAIValidator{err: errors.New("connection refused")}
		service := NewSettingsService(store, validator)

		err := service.ValidateLLMConfig()

		assert.ErrorContains(t, err, "connection refused")
		require.NotNil(t, validator.called)
		assert.Equal(t, domain.AIProviderOllama, validator.called.Provider)
		assert.Equal(t, "http://localhost:11434", validator.called.BaseURL)
	})
}
