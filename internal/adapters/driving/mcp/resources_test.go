package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
	"github.com/custodia-labs/dpa-check/internal/prompts"
)

func TestExtractPromptName(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid prompt URI",
			uri:      "dpa-check://prompts/system",
			expected: "system",
		},
		{
			name:     "invalid prefix",
			uri:      "file://prompts/system",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractPromptName(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleCategoriesResource(t *testing.T) {
	server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}})
	require.NoError(t, err)

	result, err := server.handleCategoriesResource(context.Background(), makeReadResourceRequest("dpa-check://categories"))

	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)

	var infos []struct {
		Key    string `json:"key"`
		Core   bool   `json:"core"`
		Weight int    `json:"weight"`
	}
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &infos))
	require.Len(t, infos, len(domain.AllCategories()))

	total := 0
	for _, info := range infos {
		if info.Core {
			total += info.Weight
		}
	}
	assert.Equal(t, 100, total)
	assert.Equal(t, string(domain.CategoryInstructionsOnly), infos[0].Key)
}

func TestServer_handlePromptResource(t *testing.T) {
	ctx := context.Background()

	t.Run("serves built-in template without store", func(t *testing.T) {
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}})
		require.NoError(t, err)

		result, err := server.handlePromptResource(ctx, makeReadResourceRequest("dpa-check://prompts/merge"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		want, _ := prompts.Default(driven.PromptMerge)
		assert.Equal(t, want, result.Contents[0].Text)
	})

	t.Run("serves override from store", func(t *testing.T) {
		store := &mockPromptStore{prompts: map[string]string{driven.PromptSystem: "Eigener Prompt"}}
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}, Prompts: store})
		require.NoError(t, err)

		result, err := server.handlePromptResource(ctx, makeReadResourceRequest("dpa-check://prompts/system"))

		require.NoError(t, err)
		assert.Equal(t, "Eigener Prompt", result.Contents[0].Text)
	})

	t.Run("unknown prompt is not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}})
		require.NoError(t, err)

		_, err = server.handlePromptResource(ctx, makeReadResourceRequest("dpa-check://prompts/secret"))

		require.Error(t, err)
	})
}
