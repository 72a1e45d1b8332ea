package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLLMProvider        = "llm.provider"
	keyLLMModel           = "llm.model"
	keyLLMBaseURL         = "llm.base_url"
	keyLLMAPIKey          = "llm.api_key"
	keyLLMTimeout         = "llm.timeout_seconds"
	keyLLMMaxOutputTokens = "llm.max_output_tokens"
	keyLLMTemperature     = "llm.temperature"
	keyTargetTokens       = "analysis.target_tokens"
	keyHardMaxTokens      = "analysis.hard_max_tokens"
	keyMaxChunks          = "analysis.max_chunks"
	keyConcurrency        = "analysis.concurrency"
	keyMinTextChars       = "analysis.min_text_chars"
	keyMaxRetries         = "retry.max_retries"
	keyBaseDelay          = "retry.base_delay_ms"
	keyMaxDelay           = "retry.max_delay_ms"
	keyRequestsPerSecond  = "ratelimit.requests_per_second"
	keyBurst              = "ratelimit.burst"
	keyServerAddr         = "server.addr"
	keyMaxUploadBytes     = "server.max_upload_bytes"
)

// defaultOllamaURL is used when Ollama is selected without a base URL.
const defaultOllamaURL = "http://localhost:11434"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateRetry, domain.RetrySettings{})
	return v
}

// validateRetry rejects a MaxDelay that would cap the backoff before the
// last retry, which would repeat the same delay.
func validateRetry(sl validator.StructLevel) {
	r, ok := sl.Current().Interface().(domain.RetrySettings)
	if !ok {
		return
	}
	if need := r.UncappedDelay(); r.MaxDelay < need {
		sl.ReportError(r.MaxDelay, "MaxDelay", "MaxDelay", "backoff", need.String())
	}
}

// envOverrides are read from DPA_* variables and win over the config file.
// Zero values mean "not set".
type envOverrides struct {
	LLMProvider     string        `envconfig:"LLM_PROVIDER"`
	LLMModel        string        `envconfig:"LLM_MODEL"`
	LLMBaseURL      string        `envconfig:"LLM_BASE_URL"`
	LLMAPIKey       string        `envconfig:"LLM_API_KEY"`
	LLMTimeout      time.Duration `envconfig:"LLM_TIMEOUT"`
	TargetTokens    int           `envconfig:"ANALYSIS_TARGET_TOKENS"`
	HardMaxTokens   int           `envconfig:"ANALYSIS_HARD_MAX_TOKENS"`
	MaxChunks       int           `envconfig:"ANALYSIS_MAX_CHUNKS"`
	Concurrency     int           `envconfig:"ANALYSIS_CONCURRENCY"`
	MaxRetries      int           `envconfig:"RETRY_MAX_RETRIES"`
	BaseDelay       time.Duration `envconfig:"RETRY_BASE_DELAY"`
	ServerAddr      string        `envconfig:"SERVER_ADDR"`
	RateLimitPerSec float64       `envconfig:"RATELIMIT_RPS"`
}

// providerKeys are the vendors' conventional API key variables.
type providerKeys struct {
	Anthropic string `envconfig:"ANTHROPIC_API_KEY"`
	OpenAI    string `envconfig:"OPENAI_API_KEY"`
	Gemini    string `envconfig:"GEMINI_API_KEY"`
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	useEnv      bool
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		useEnv:      true,
	}
}

// WithoutEnv returns a copy that ignores environment overrides.
// The settings editor uses it so that saving never persists environment values.
func (s *SettingsService) WithoutEnv() *SettingsService {
	cp := *s
	cp.useEnv = false
	return &cp
}

// Get retrieves current application settings: defaults, then the config file,
// then environment overrides.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		LLM: domain.LLMSettings{
			Provider:        s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:           s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:         s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:          s.configStore.GetString(keyLLMAPIKey),
			Timeout:         s.getSeconds(keyLLMTimeout, defaults.LLM.Timeout),
			MaxOutputTokens: s.getInt(keyLLMMaxOutputTokens, defaults.LLM.MaxOutputTokens),
			Temperature:     s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
		},
		Analysis: domain.AnalysisSettings{
			TargetTokens:  s.getInt(keyTargetTokens, defaults.Analysis.TargetTokens),
			HardMaxTokens: s.getInt(keyHardMaxTokens, defaults.Analysis.HardMaxTokens),
			MaxChunks:     s.getInt(keyMaxChunks, defaults.Analysis.MaxChunks),
			Concurrency:   s.getInt(keyConcurrency, defaults.Analysis.Concurrency),
			MinTextChars:  s.getInt(keyMinTextChars, defaults.Analysis.MinTextChars),
		},
		Retry: domain.RetrySettings{
			MaxRetries: s.getIntAllowZero(keyMaxRetries, defaults.Retry.MaxRetries),
			BaseDelay:  s.getMillis(keyBaseDelay, defaults.Retry.BaseDelay),
			MaxDelay:   s.getMillis(keyMaxDelay, defaults.Retry.MaxDelay),
		},
		RateLimit: domain.RateLimitSettings{
			RequestsPerSecond: s.getFloat(keyRequestsPerSecond, defaults.RateLimit.RequestsPerSecond),
			Burst:             s.getInt(keyBurst, defaults.RateLimit.Burst),
		},
		Server: domain.ServerSettings{
			Addr:           s.getString(keyServerAddr, defaults.Server.Addr),
			MaxUploadBytes: int64(s.getInt(keyMaxUploadBytes, int(defaults.Server.MaxUploadBytes))),
		},
	}

	if s.useEnv {
		if err := applyEnv(settings); err != nil {
			return nil, err
		}
	}

	return settings, nil
}

// applyEnv overlays DPA_* variables and fills a missing API key from the provider's own variable.
func applyEnv(settings *domain.AppSettings) error {
	var env envOverrides
	if err := envconfig.Process("DPA", &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	if env.LLMProvider != "" {
		settings.LLM.Provider = domain.AIProvider(env.LLMProvider)
		if env.LLMModel == "" && settings.LLM.Model == "" {
			settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
		}
	}
	setIfNotEmpty(&settings.LLM.Model, env.LLMModel)
	setIfNotEmpty(&settings.LLM.BaseURL, env.LLMBaseURL)
	setIfNotEmpty(&settings.LLM.APIKey, env.LLMAPIKey)
	setIfNotEmpty(&settings.Server.Addr, env.ServerAddr)
	setIfPositive(&settings.Analysis.TargetTokens, env.TargetTokens)
	setIfPositive(&settings.Analysis.HardMaxTokens, env.HardMaxTokens)
	setIfPositive(&settings.Analysis.MaxChunks, env.MaxChunks)
	setIfPositive(&settings.Analysis.Concurrency, env.Concurrency)
	setIfPositive(&settings.Retry.MaxRetries, env.MaxRetries)
	if env.LLMTimeout > 0 {
		settings.LLM.Timeout = env.LLMTimeout
	}
	if env.BaseDelay > 0 {
		settings.Retry.BaseDelay = env.BaseDelay
	}
	if env.RateLimitPerSec > 0 {
		settings.RateLimit.RequestsPerSecond = env.RateLimitPerSec
	}

	if settings.LLM.APIKey == "" {
		var keys providerKeys
		if err := envconfig.Process("", &keys); err != nil {
			return fmt.Errorf("read environment: %w", err)
		}
		switch settings.LLM.Provider {
		case domain.AIProviderAnthropic:
			settings.LLM.APIKey = keys.Anthropic
		case domain.AIProviderOpenAI:
			settings.LLM.APIKey = keys.OpenAI
		case domain.AIProviderGemini:
			settings.LLM.APIKey = keys.Gemini
		}
	}

	if settings.LLM.Provider.IsLocal() && settings.LLM.BaseURL == "" {
		settings.LLM.BaseURL = defaultOllamaURL
	}
	return nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := ValidateSettings(settings); err != nil {
		return err
	}

	values := map[string]any{
		keyLLMProvider:        settings.LLM.Provider.String(),
		keyLLMModel:           settings.LLM.Model,
		keyLLMBaseURL:         settings.LLM.BaseURL,
		keyLLMTimeout:         int(settings.LLM.Timeout / time.Second),
		keyLLMMaxOutputTokens: settings.LLM.MaxOutputTokens,
		keyLLMTemperature:     settings.LLM.Temperature,
		keyTargetTokens:       settings.Analysis.TargetTokens,
		keyHardMaxTokens:      settings.Analysis.HardMaxTokens,
		keyMaxChunks:          settings.Analysis.MaxChunks,
		keyConcurrency:        settings.Analysis.Concurrency,
		keyMinTextChars:       settings.Analysis.MinTextChars,
		keyMaxRetries:         settings.Retry.MaxRetries,
		keyBaseDelay:          int(settings.Retry.BaseDelay / time.Millisecond),
		keyMaxDelay:           int(settings.Retry.MaxDelay / time.Millisecond),
		keyRequestsPerSecond:  settings.RateLimit.RequestsPerSecond,
		keyBurst:              settings.RateLimit.Burst,
		keyServerAddr:         settings.Server.Addr,
		keyMaxUploadBytes:     int(settings.Server.MaxUploadBytes),
	}

	// Only overwrite a stored key when a new one is given
	if settings.LLM.APIKey != "" {
		values[keyLLMAPIKey] = settings.LLM.APIKey
	}

	if err := s.configStore.SetAll(values); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.WithoutEnv().Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that the effective settings are complete and consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := ValidateSettings(settings); err != nil {
		return err
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: run 'dpa-check settings llm' or set DPA_LLM_PROVIDER", domain.ErrOracleUnavailable)
	}
	return nil
}

// ValidateSettings checks field constraints and the provider name.
func ValidateSettings(settings *domain.AppSettings) error {
	if settings.LLM.Provider != "" && !settings.LLM.Provider.IsValid() {
		return fmt.Errorf("%w: unknown LLM provider %q", domain.ErrInvalidInput, settings.LLM.Provider)
	}
	if err := validate.Struct(settings); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s fails %s=%s (got %v)",
				domain.ErrInvalidInput, fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero distinguishes an explicit 0 from a missing key.
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	return time.Duration(s.getInt(key, int(defaultVal/time.Second))) * time.Second
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	return time.Duration(s.getInt(key, int(defaultVal/time.Millisecond))) * time.Millisecond
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setIfPositive(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
