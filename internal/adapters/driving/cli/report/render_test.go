package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

func sampleResult() *domain.AnalysisResult {
	findings := make(map[domain.Category]domain.Finding)
	for _, c := range domain.AllCategories() {
		findings[c] = domain.Finding{Category: c, Status: domain.StatusMet}
	}
	findings[domain.CategoryAuditRights] = domain.Finding{
		Category: domain.CategoryAuditRights,
		Status:   domain.StatusMissing,
	}
	findings[domain.CategorySecurityTOMs] = domain.Finding{
		Category: domain.CategorySecurityTOMs,
		Status:   domain.StatusPartial,
		Evidence: []domain.Evidence{{Quote: "Verschlüsselung nach Stand der Technik", Page: 4}},
	}

	return &domain.AnalysisResult{
		RequestID: "req-1",
		Record: domain.AnalysisRecord{
			Summary: "AVV mit Lücken bei Kontrollrechten.",
			Metadata: domain.Metadata{
				Title: "AVV Cloud AG",
				Date:  "2024-01-15",
				Parties: []domain.Party{
					{Role: domain.RoleController, Name: "Kunde GmbH"},
					{Role: domain.RoleProcessor, Name: "Cloud AG", Country: "DE"},
				},
			},
			Findings: findings,
			Actions: []domain.ActionItem{
				{Category: domain.CategoryAuditRights, Severity: domain.SeverityHigh, Description: "Kontrollrechte ergänzen"},
			},
		},
		Breakdown: domain.ScoreBreakdown{Overall: 72, Risk: 35},
		Stats: domain.RunStats{
			ChunksTotal:    3,
			ChunksAnalyzed: 2,
			ChunksSkipped:  1,
			Truncated:      true,
			OracleCalls:    4,
			Retries:        1,
			Duration:       1500 * time.Millisecond,
		},
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Render(&buf, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "AVV Cloud AG")
	assert.Contains(t, out, "Compliance 72/100")
	assert.Contains(t, out, "Risk 35/100")
	assert.NotContains(t, out, "(assessed)")
	assert.Contains(t, out, "AVV mit Lücken bei Kontrollrechten.")
	assert.Contains(t, out, "Date: 2024-01-15")
	assert.Contains(t, out, "Cloud AG (DE)")
	assert.Contains(t, out, "„Verschlüsselung nach Stand der Technik (S. 4)“")
	assert.Contains(t, out, "1. [high] "+domain.CategoryAuditRights.Label()+": Kontrollrechte ergänzen")
	assert.Contains(t, out, "2/3 chunks analysed, 1 skipped, 4 oracle calls, 1 retries, 1.5s, document truncated")
	assert.Contains(t, out, "Request req-1")
	// No colour codes when not writing to a terminal
	assert.NotContains(t, out, "\x1b[")
}

func TestRender_FindingsInCategoryOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResult()))
	out := buf.String()
	out = out[strings.Index(out, "Findings"):]

	last := -1
	for _, c := range domain.AllCategories() {
		idx := strings.Index(out, c.Label())
		require.GreaterOrEqual(t, idx, 0, "missing %s", c)
		assert.Greater(t, idx, last, "%s out of order", c)
		last = idx
	}
}

func TestRender_Minimal(t *testing.T) {
	result := &domain.AnalysisResult{
		Record:    domain.AnalysisRecord{Findings: map[domain.Category]domain.Finding{}},
		Breakdown: domain.ScoreBreakdown{Overall: 10, Risk: 90, RiskOverridden: true},
	}
	var buf bytes.Buffer

	require.NoError(t, Render(&buf, result))

	out := buf.String()
	assert.Contains(t, out, "Vertrag zur Auftragsverarbeitung")
	assert.Contains(t, out, "(assessed)")
	assert.Contains(t, out, "unknown")
	assert.NotContains(t, out, "Contract")
	assert.NotContains(t, out, "Actions")
}

func TestStyles_Pickers(t *testing.T) {
	s := NewStyles(&bytes.Buffer{}, nil)

	assert.Equal(t, s.Success.GetForeground(), s.ForStatus(domain.StatusMet).GetForeground())
	assert.Equal(t, s.Warning.GetForeground(), s.ForStatus(domain.StatusPartial).GetForeground())
	assert.Equal(t, s.Error.GetForeground(), s.ForStatus(domain.StatusMissing).GetForeground())
	assert.Equal(t, s.Muted.GetForeground(), s.ForStatus(domain.StatusUnknown).GetForeground())

	assert.Equal(t, s.Success.GetForeground(), s.ForScore(80).GetForeground())
	assert.Equal(t, s.Warning.GetForeground(), s.ForScore(50).GetForeground())
	assert.Equal(t, s.Error.GetForeground(), s.ForScore(49).GetForeground())

	assert.Equal(t, s.Error.GetForeground(), s.ForSeverity(domain.SeverityHigh).GetForeground())
	assert.Equal(t, s.Muted.GetForeground(), s.ForSeverity(domain.SeverityLow).GetForeground())
	assert.Equal(t, DefaultTheme(), s.Theme())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
