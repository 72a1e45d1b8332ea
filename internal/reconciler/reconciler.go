// Package reconciler maps loosely-shaped Oracle records onto the canonical AnalysisRecord.
//
// Every accepted alternative field name lives in one of the alias tables below
// and is resolved through lookup. Reconcile never fails: fields that cannot be
// interpreted are dropped and defaults fill the gaps. Reconcile is idempotent on
// its own output.
package reconciler

import (
	"math"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

// Accepted names for top-level fields, in priority order.
// Entries are compared after domain.NormalizeKey.
var (
	summaryAliases  = []string{"summary", "zusammenfassung", "executive_summary", "overview", "fazit"}
	metadataAliases = []string{"metadata", "meta", "contract_metadata", "contract", "vertrag", "document"}
	findingsAliases = []string{
		"findings", "categories", "checklist", "assessment", "assessments", "compliance_checks",
		"results", "kategorien", "pruefpunkte", "ergebnisse", "bewertungen",
	}
	actionsAliases = []string{
		"actions", "action_items", "recommendations", "massnahmen", "todos", "next_steps", "empfehlungen",
	}
	scoresAliases       = []string{"scores", "scoring"}
	riskOverrideAliases = []string{"risk_score", "riskscore", "risk", "risiko_score", "risiko"}
	wrapperAliases      = []string{"analysis", "result", "record", "data", "dpa_analysis", "avv_analyse", "analyse"}
)

// Reconcile normalises a structured record into an AnalysisRecord.
//
// All eleven categories are present in the result. Core categories without
// a finding are missing; supplementary ones stay unassessed. Scores are carried
// over unchanged except for the risk override; callers recompute them.
func Reconcile(rec domain.StructuredRecord) domain.AnalysisRecord {
	obj := unwrap(map[string]any(rec))

	meta, _ := asObject(lookupValue(obj, metadataAliases))
	if meta == nil {
		// Some answers put title and parties at the top level.
		meta = obj
	}

	return domain.AnalysisRecord{
		Summary:  asString(lookupValue(obj, summaryAliases)),
		Metadata: reconcileMetadata(meta),
		Findings: reconcileFindings(lookupValue(obj, findingsAliases)),
		Actions:  reconcileActions(obj),
		Scores:   reconcileScores(obj),
	}
}

// unwrap descends into a single wrapper object such as {"analysis": {...}}
// when the top level carries none of the known fields.
func unwrap(obj map[string]any) map[string]any {
	for depth := 0; depth < 3; depth++ {
		if hasAny(obj, summaryAliases, findingsAliases, actionsAliases, metadataAliases) {
			return obj
		}
		inner, ok := asObject(lookupValue(obj, wrapperAliases))
		if !ok {
			return obj
		}
		obj = inner
	}
	return obj
}

func hasAny(obj map[string]any, tables ...[]string) bool {
	for _, aliases := range tables {
		if _, ok := lookup(obj, aliases); ok {
			return true
		}
	}
	return false
}

func reconcileScores(obj map[string]any) domain.RecordScores {
	var scores domain.RecordScores

	nested, _ := asObject(lookupValue(obj, scoresAliases))
	if nested != nil {
		if v, ok := asScore(lookupValue(nested, []string{"compliance", "compliance_score"})); ok {
			scores.Compliance = v
		}
		if v, ok := asScore(lookupValue(nested, []string{"risk"})); ok {
			scores.Risk = v
		}
		if v, ok := asScore(lookupValue(nested, []string{"risk_override"})); ok {
			scores.RiskOverride = &v
		}
	}

	if scores.RiskOverride == nil {
		if v, ok := asScore(lookupValue(obj, riskOverrideAliases)); ok {
			scores.RiskOverride = &v
		}
	}

	return scores
}

// asScore accepts a number or numeric string and clamps it to 0..100.
func asScore(v any) (int, bool) {
	f, ok := asNumber(v)
	if !ok {
		return 0, false
	}
	return int(math.Max(0, math.Min(100, math.Round(f)))), true
}
