package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/logger"
)

// toolAnalyze is the name of the only tool.
const toolAnalyze = "analyze_document"

// AnalyzeInput is the input schema for the analyze_document tool.
type AnalyzeInput struct {
	Text     string `json:"text,omitempty" jsonschema:"the contract text to analyse"`
	Path     string `json:"path,omitempty" jsonschema:"path to a local contract file (txt, md, html, docx or pdf)"`
	MIMEType string `json:"mime_type,omitempty" jsonschema:"MIME type of the file at path, sniffed when empty"`
}

// AnalyzeOutput is the output schema for the analyze_document tool.
type AnalyzeOutput struct {
	RequestID  string              `json:"request_id"`
	Title      string              `json:"title"`
	Compliance int                 `json:"compliance"`
	Risk       int                 `json:"risk"`
	Summary    string              `json:"summary"`
	Findings   []FindingOutput     `json:"findings"`
	Actions    []domain.ActionItem `json:"actions"`
	Stats      domain.RunStats     `json:"stats"`
}

// FindingOutput is the assessment of one category.
type FindingOutput struct {
	Category string            `json:"category"`
	Label    string            `json:"label"`
	Status   string            `json:"status"`
	Evidence []domain.Evidence `json:"evidence,omitempty"`
}

// handleAnalyze handles the analyze_document tool invocation.
func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeInput,
) (*mcp.CallToolResult, AnalyzeOutput, error) {
	req, err := buildInput(input)
	if err != nil {
		return nil, AnalyzeOutput{}, err
	}

	result, err := s.ports.Analysis.Analyze(ctx, req, func(phase domain.Phase, detail string) {
		logger.Debug("mcp analyze: %s %s", phase, detail)
	})
	if err != nil {
		return nil, AnalyzeOutput{}, err
	}

	return nil, toOutput(result), nil
}

func buildInput(input AnalyzeInput) (domain.AnalysisInput, error) {
	switch {
	case input.Text != "" && input.Path != "":
		return domain.AnalysisInput{}, ErrAmbiguousDocument
	case input.Text != "":
		return domain.AnalysisInput{Text: input.Text}, nil
	case input.Path == "":
		return domain.AnalysisInput{}, ErrNoDocument
	}

	data, err := os.ReadFile(input.Path)
	if err != nil {
		return domain.AnalysisInput{}, fmt.Errorf("reading %s: %w", input.Path, err)
	}
	return domain.AnalysisInput{
		Content:  data,
		MIMEType: input.MIMEType,
		Name:     filepath.Base(input.Path),
	}, nil
}

func toOutput(result *domain.AnalysisResult) AnalyzeOutput {
	record := &result.Record
	output := AnalyzeOutput{
		RequestID:  result.RequestID,
		Title:      record.Metadata.Title,
		Compliance: record.Scores.Compliance,
		Risk:       record.Scores.Risk,
		Summary:    record.Summary,
		Findings:   make([]FindingOutput, 0, len(domain.AllCategories())),
		Actions:    record.Actions,
		Stats:      result.Stats,
	}
	if output.Actions == nil {
		output.Actions = []domain.ActionItem{}
	}

	for _, c := range domain.AllCategories() {
		f := record.Finding(c)
		output.Findings = append(output.Findings, FindingOutput{
			Category: string(c),
			Label:    c.Label(),
			Status:   string(f.Status),
			Evidence: f.Evidence,
		})
	}

	return output
}
