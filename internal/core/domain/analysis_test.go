package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisRecord_Finding_Absent(t *testing.T) {
	rec := AnalysisRecord{}

	f := rec.Finding(CategoryAuditRights)
	assert.Equal(t, CategoryAuditRights, f.Category)
	assert.Equal(t, StatusUnknown, f.Status)
	assert.NotNil(t, f.Evidence)
	assert.Equal(t, StatusUnknown, rec.Status(CategoryAuditRights))
}

func TestAnalysisRecord_Structured(t *testing.T) {
	override := 40
	rec := AnalysisRecord{
		Summary: "AVV mit Lücken",
		Findings: map[Category]Finding{
			CategoryAuditRights: {
				Category: CategoryAuditRights,
				Status:   StatusPartial,
				Evidence: []Evidence{{Quote: "Der Auftraggeber darf prüfen.", Page: 3}},
			},
		},
		Actions: []ActionItem{{Category: CategoryAuditRights, Severity: SeverityLow, Description: "Fristen ergänzen"}},
		Scores:  RecordScores{Compliance: 60, Risk: 40, RiskOverride: &override},
	}

	out, err := rec.Structured()
	require.NoError(t, err)

	assert.Equal(t, "AVV mit Lücken", out["summary"])
	findings, ok := out["findings"].(map[string]any)
	require.True(t, ok)
	audit, ok := findings["audit_rights"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "partial", audit["status"])

	scores, ok := out["scores"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(40), scores["risk_override"])
}
