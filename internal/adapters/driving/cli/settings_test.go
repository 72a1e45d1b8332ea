package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSettingsCmd_Subcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range settingsCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"show", "llm"}, names)
}

func TestSettingsShow(t *testing.T) {
	setupTestDeps(t)

	out, err := execute(t, "settings", "show")

	require.NoError(t, err)
	for _, section := range []string{"[LLM]", "[Analysis]", "[Retry]", "[Rate Limit]", "[Server]"} {
		assert.Contains(t, out, section)
	}
	assert.Contains(t, out, "OpenAI (cloud)")
	assert.Contains(t, out, "sk-t...7890")
	assert.NotContains(t, out, "sk-test-1234567890")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsShow_Unconfigured(t *testing.T) {
	settings, _ := setupTestDeps(t)
	settings.settings.LLM = domain.LLMSettings{}
	settings.settings.RateLimit.RequestsPerSecond = 0

	out, err := execute(t, "settings")

	require.NoError(t, err)
	assert.Contains(t, out, "not configured")
	assert.Contains(t, out, "Disabled")
	assert.Contains(t, out, "dpa-check settings llm")
}

func TestSettingsShow_ValidationWarning(t *testing.T) {
	settings, _ := setupTestDeps(t)
	settings.validateErr = errors.New("analysis.concurrency out of range")

	out, err := execute(t, "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning: analysis.concurrency out of range")
}

func TestSettingsLLM(t *testing.T) {
	settings, _ := setupTestDeps(t)
	rootCmd.SetIn(strings.NewReader("2\n\nsk-new-key\n"))

	out, err := execute(t, "settings", "llm")

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.provider)
	assert.Equal(t, domain.DefaultLLMModels()[domain.AIProviderOpenAI], settings.model)
	assert.Equal(t, "sk-new-key", settings.apiKey)
	assert.Contains(t, out, "Validating configuration... OK")
}

func TestSettingsLLM_LocalProviderSkipsKey(t *testing.T) {
	settings, _ := setupTestDeps(t)
	rootCmd.SetIn(strings.NewReader("1\nqwen2.5\n"))

	_, err := execute(t, "settings", "llm")

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.provider)
	assert.Equal(t, "qwen2.5", settings.model)
	assert.Empty(t, settings.apiKey)
}

func TestSettingsLLM_MissingKey(t *testing.T) {
	setupTestDeps(t)
	rootCmd.SetIn(strings.NewReader("3\n\n\n"))

	_, err := execute(t, "settings", "llm")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestSettingsLLM_ValidationFails(t *testing.T) {
	settings, _ := setupTestDeps(t)
	settings.llmErr = errors.New("connection refused")
	rootCmd.SetIn(strings.NewReader("1\n\n"))

	out, err := execute(t, "settings", "llm")

	require.Error(t, err)
	assert.Contains(t, out, "FAILED: connection refused")
}
