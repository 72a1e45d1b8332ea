package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/prompts"
)

const (
	// uriScheme is the custom URI scheme for dpa-check resources.
	uriScheme = "dpa-check://"
)

// handleCategoriesResource lists all categories in report order.
func (s *Server) handleCategoriesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type categoryInfo struct {
		Key    string   `json:"key"`
		Label  string   `json:"label"`
		Core   bool     `json:"core"`
		Weight int      `json:"weight"`
		Alias  []string `json:"aliases"`
	}

	all := domain.AllCategories()
	infos := make([]categoryInfo, len(all))
	for i, c := range all {
		infos[i] = categoryInfo{
			Key:    string(c),
			Label:  c.Label(),
			Core:   c.IsCore(),
			Weight: c.Weight(),
			Alias:  domain.CategoryAliases(c),
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling categories: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handlePromptResource returns the active template for a prompt name.
func (s *Server) handlePromptResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	name := extractPromptName(req.Params.URI)
	if _, ok := prompts.Default(name); !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	text, err := prompts.Load(s.ports.Prompts, name)
	if err != nil {
		return nil, fmt.Errorf("loading prompt: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     text,
		}},
	}, nil
}

// extractPromptName extracts the name from a URI like dpa-check://prompts/{name}.
func extractPromptName(uri string) string {
	const prefix = uriScheme + "prompts/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
