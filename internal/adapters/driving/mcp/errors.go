// Package mcp provides an MCP (Model Context Protocol) server adapter for dpa-check.
// It lets AI assistants analyse data processing agreements through a single tool.
package mcp

import "errors"

var (
	// ErrMissingAnalysisService is returned when the analysis service is not provided.
	ErrMissingAnalysisService = errors.New("mcp: analysis service is required")

	// ErrNoDocument is returned when a tool call names neither text nor path.
	ErrNoDocument = errors.New("mcp: either text or path is required")

	// ErrAmbiguousDocument is returned when a tool call names both text and path.
	ErrAmbiguousDocument = errors.New("mcp: text and path are mutually exclusive")
)
