package mcp

import (
	"context"
	"errors"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driving"
)

// mockAnalysisService is a mock implementation of driving.AnalysisService.
type mockAnalysisService struct {
	input  domain.AnalysisInput
	result *domain.AnalysisResult
	err    error
}

func (m *mockAnalysisService) Analyze(
	_ context.Context,
	input domain.AnalysisInput,
	progress driving.ProgressFunc,
) (*domain.AnalysisResult, error) {
	m.input = input
	if progress != nil {
		progress(domain.PhaseExtracting, "")
	}
	return m.result, m.err
}

// mockPromptStore is a mock implementation of driven.PromptStore.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", errors.New("not found")
}

func (m *mockPromptStore) Reload() {}

func sampleResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		RequestID: "req-1",
		Record: domain.AnalysisRecord{
			Summary:  "Solider Vertrag",
			Metadata: domain.Metadata{Title: "AVV Beispiel GmbH"},
			Findings: map[domain.Category]domain.Finding{
				domain.CategoryAuditRights: {
					Category: domain.CategoryAuditRights,
					Status:   domain.StatusMet,
					Evidence: []domain.Evidence{{Quote: "Kontrollrechte", Page: 3}},
				},
			},
			Actions: []domain.ActionItem{{
				Category:    domain.CategorySubprocessors,
				Severity:    domain.SeverityHigh,
				Description: "Genehmigungsvorbehalt ergänzen",
			}},
			Scores: domain.RecordScores{Compliance: 72, Risk: 28},
		},
		Stats: domain.RunStats{ChunksTotal: 2, ChunksAnalyzed: 2, OracleCalls: 3},
	}
}
