package mcp

import (
	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driving"
)

// Ports aggregates the services required by the MCP server.
type Ports struct {
	// Analysis runs contract analyses.
	Analysis driving.AnalysisService

	// Prompts exposes the active prompt templates. Optional; built-in
	// templates are served when nil.
	Prompts driven.PromptStore
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Analysis == nil {
		return ErrMissingAnalysisService
	}
	return nil
}
