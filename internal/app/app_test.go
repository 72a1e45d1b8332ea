package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

const mergedRecord = `{
  "summary": "Vollständiger AVV",
  "metadata": {"title": "AVV Cloud AG", "parties": {"controller": "Kunde GmbH", "processor": "Cloud AG"}},
  "findings": {
    "instructions_only": {"status": "met"},
    "confidentiality": {"status": "met"},
    "security_TOMs": {"status": "met"},
    "subprocessors": {"status": "met"},
    "data_subject_rights": {"status": "met"},
    "breach_notification": {"status": "met"},
    "deletion_return": {"status": "met"},
    "audit_rights": {"status": "met"},
    "international_transfers": {"status": "met"},
    "liability_cap": {"status": "met"},
    "jurisdiction": {"status": "met"}
  },
  "actions": []
}`

// fakeOllama serves the Ollama chat API with canned analysis answers.
func fakeOllama(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2"}]}`))
		case "/api/chat":
			calls.Add(1)
			var req struct {
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			answer := `{"summary": "Teil", "findings": {"audit_rights": {"status": "partial"}}}`
			for _, m := range req.Messages {
				if m.Role == "user" && strings.Contains(m.Content, "Teilergebnisse") {
					answer = mergedRecord
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"message": map[string]string{"role": "assistant", "content": answer},
				"done":    true,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	a, err := New(dir)

	require.NoError(t, err)
	assert.NotNil(t, a.Settings)
	assert.NotNil(t, a.Extractors)
	assert.Equal(t, dir+"/prompts", a.Prompts.Dir())
	assert.Contains(t, a.Extractors.SupportedMIMETypes(), "application/pdf")
}

func TestApp_NewAnalyzer_EndToEnd(t *testing.T) {
	var calls atomic.Int32
	server := fakeOllama(t, &calls)

	a, err := New(t.TempDir())
	require.NoError(t, err)

	settings := domain.DefaultAppSettings()
	settings.LLM.Provider = domain.AIProviderOllama
	settings.LLM.BaseURL = server.URL
	settings.LLM.Model = "llama3.2"
	settings.RateLimit.RequestsPerSecond = 0

	analyzer, release, err := a.NewAnalyzer(context.Background(), &settings)
	require.NoError(t, err)
	defer release()

	text := strings.Repeat("Der Auftragnehmer verarbeitet personenbezogene Daten ausschließlich auf Weisung.\n\n", 10)
	result, err := analyzer.Analyze(context.Background(), domain.AnalysisInput{Text: text}, nil)

	require.NoError(t, err)
	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, "Vollständiger AVV", result.Record.Summary)
	assert.Len(t, result.Record.Findings, 11)
	assert.Equal(t, 100, result.Breakdown.Overall)
	assert.Equal(t, 1, result.Stats.ChunksTotal)
	assert.Equal(t, 2, result.Stats.OracleCalls)
	assert.Equal(t, int32(2), calls.Load())
}

func TestApp_NewAnalyzer_NotConfigured(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)

	settings := domain.DefaultAppSettings()
	_, _, err = a.NewAnalyzer(context.Background(), &settings)

	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
}
