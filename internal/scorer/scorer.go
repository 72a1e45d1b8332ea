// Package scorer computes the deterministic compliance and risk scores of a record.
package scorer

import (
	"math"

	"github.com/samber/lo"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

// Bonus points for supplementary categories.
const (
	TransfersMetBonus     = 5.0
	TransfersPresentBonus = 3.0
	TransfersPartialBonus = 2.0
	LiabilityCapBonus     = 2.0
	JurisdictionBonus     = 2.0
)

// Corrections subtracted from the score.
const (
	ManyActionsCorrection      = 5.0
	HighSeverityCorrection     = 5.0
	LiabilityMissingCorrection = 5.0
	TransfersMissingCorrection = 3.0

	// ManyActionsThreshold is the number of medium-or-high actions that triggers ManyActionsCorrection.
	ManyActionsThreshold = 3
)

// Score computes the breakdown for a record.
// Compliance is always derived from the findings and actions; an Oracle risk
// figure only replaces the derived risk.
func Score(rec domain.AnalysisRecord) domain.ScoreBreakdown {
	b := domain.ScoreBreakdown{
		PerCategory: make(map[domain.Category]float64, len(domain.CoreCategories())),
	}

	for _, c := range domain.CoreCategories() {
		points := float64(c.Weight()) * status(rec, c).ForCore().Factor()
		b.PerCategory[c] = points
		b.Base += points
	}

	b.Bonus = bonus(rec)
	b.Corrections = corrections(rec)
	b.Overall = clamp(int(math.Round(b.Base+b.Bonus-b.Corrections)), 0, 100)

	b.Risk = 100 - b.Overall
	if rec.Scores.RiskOverride != nil {
		b.Risk = clamp(*rec.Scores.RiskOverride, 0, 100)
		b.RiskOverridden = true
	}

	return b
}

// Apply writes the breakdown into the record's scores.
func Apply(rec *domain.AnalysisRecord, b domain.ScoreBreakdown) {
	rec.Scores.Compliance = b.Overall
	rec.Scores.Risk = b.Risk
}

func bonus(rec domain.AnalysisRecord) float64 {
	var total float64

	switch status(rec, domain.CategoryInternationalTransfers) {
	case domain.StatusMet:
		total += TransfersMetBonus
	case domain.StatusPresent:
		total += TransfersPresentBonus
	case domain.StatusPartial:
		total += TransfersPartialBonus
	}

	if isMetOrPresent(status(rec, domain.CategoryLiabilityCap)) {
		total += LiabilityCapBonus
	}
	if isMetOrPresent(status(rec, domain.CategoryJurisdiction)) {
		total += JurisdictionBonus
	}

	return total
}

func corrections(rec domain.AnalysisRecord) float64 {
	var total float64

	urgent := lo.CountBy(rec.Actions, func(a domain.ActionItem) bool {
		return a.Severity.AtLeastMedium()
	})
	if urgent >= ManyActionsThreshold {
		total += ManyActionsCorrection
	}
	if lo.ContainsBy(rec.Actions, func(a domain.ActionItem) bool { return a.Severity == domain.SeverityHigh }) {
		total += HighSeverityCorrection
	}

	if status(rec, domain.CategoryLiabilityCap).IsAbsent() {
		total += LiabilityMissingCorrection
	}
	if status(rec, domain.CategoryInternationalTransfers) == domain.StatusMissing {
		total += TransfersMissingCorrection
	}

	return total
}

func isMetOrPresent(s domain.Status) bool {
	return s == domain.StatusMet || s == domain.StatusPresent
}

func clamp(v, low, high int) int {
	return max(low, min(high, v))
}

// status reads a finding status through the canonical vocabulary, so records
// built by hand with "Erfüllt" or "MET" score like canonical ones.
func status(rec domain.AnalysisRecord, c domain.Category) domain.Status {
	return domain.ParseStatus(string(rec.Status(c)))
}
