package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
)

func newTestOracle(t *testing.T, cfg Config, handler http.HandlerFunc) *Oracle {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.APIKey = "sk-test"
	cfg.BaseURL = server.URL + "/"
	o, err := New(cfg)
	require.NoError(t, err)
	return o
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	o, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, o.ModelName())
	assert.Equal(t, DefaultBaseURL, o.baseURL)
}

func TestOracle_Analyze(t *testing.T) {
	o := newTestOracle(t, Config{Model: "gpt-4o", MaxTokens: 2048, JSONMode: true}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.Equal(t, 2048, req.MaxTokens)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"summary\":\"ok\"}"},"finish_reason":"stop"}]}`))
	})

	out, err := o.Analyze(context.Background(), driven.OraclePrompt{System: "S", User: "U"})

	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, out)
}

func TestOracle_Analyze_NoSystemPrompt(t *testing.T) {
	o := newTestOracle(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Nil(t, req.ResponseFormat)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"x"}}]}`))
	})

	_, err := o.Analyze(context.Background(), driven.OraclePrompt{User: "U"})
	require.NoError(t, err)
}

func TestOracle_Analyze_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		kind      domain.OracleErrorKind
		retryable bool
	}{
		{"rate limited", 429, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`, domain.OracleRateLimited, true},
		{"quota", 429, `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`, domain.OracleRateLimited, true},
		{"unavailable", 503, `{"error":{"message":"The engine is currently overloaded","type":"server_error"}}`, domain.OracleOverloaded, true},
		{"bad key", 401, `{"error":{"message":"Incorrect API key","type":"invalid_request_error","code":"invalid_api_key"}}`, domain.OracleOther, false},
		{"not json", 500, `upstream error`, domain.OracleOther, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOracle(t, Config{}, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := o.Analyze(context.Background(), driven.OraclePrompt{User: "x"})

			var oe *domain.OracleError
			require.ErrorAs(t, err, &oe)
			assert.Equal(t, tt.kind, oe.Kind)
			assert.Equal(t, tt.retryable, oe.Retryable)
		})
	}
}

func TestOracle_Analyze_EmptyChoices(t *testing.T) {
	o := newTestOracle(t, Config{}, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := o.Analyze(context.Background(), driven.OraclePrompt{User: "x"})

	assert.ErrorIs(t, err, domain.ErrOracleFatal)
}

func TestOracle_Ping(t *testing.T) {
	o := newTestOracle(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	assert.NoError(t, o.Ping(context.Background()))

	bad := newTestOracle(t, Config{}, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	assert.Error(t, bad.Ping(context.Background()))
}
