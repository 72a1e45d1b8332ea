package reconciler

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

var (
	categoryKeyAliases = []string{"category", "kategorie", "key", "id", "name", "topic"}
	statusAliases      = []string{"status", "result", "state", "assessment", "bewertung", "ergebnis", "erfuellung"}
	evidenceAliases    = []string{
		"evidence", "evidences", "quotes", "citations", "belege", "fundstellen", "zitate", "nachweise",
	}
	quoteAliases = []string{"quote", "text", "excerpt", "citation", "zitat", "passage", "auszug"}
	pageAliases  = []string{"page", "seite", "page_number", "seitenzahl", "p"}
)

// reconcileFindings accepts findings as an object keyed by category or as a
// list of objects carrying their category.
func reconcileFindings(v any) map[domain.Category]domain.Finding {
	merged := make(map[domain.Category]domain.Finding)

	add := func(c domain.Category, value any) {
		f := parseFinding(c, value)
		if prev, ok := merged[c]; ok {
			f = mergeFindings(prev, f)
		}
		merged[c] = f
	}

	switch t := v.(type) {
	case map[string]any:
		for _, key := range sortedKeys(t) {
			if c, ok := domain.ParseCategory(key); ok {
				add(c, t[key])
			}
		}
	case []any:
		for _, item := range t {
			obj, ok := asObject(item)
			if !ok {
				continue
			}
			if c, ok := domain.ParseCategory(asString(lookupValue(obj, categoryKeyAliases))); ok {
				add(c, obj)
			}
		}
	}

	findings := make(map[domain.Category]domain.Finding, len(domain.AllCategories()))
	for _, c := range domain.AllCategories() {
		f, ok := merged[c]
		if !ok {
			f = domain.Finding{Category: c, Evidence: []domain.Evidence{}}
		}
		if c.IsCore() {
			f.Status = f.Status.ForCore()
		}
		findings[c] = f
	}
	return findings
}

// parseFinding reads a finding object or a bare status string.
func parseFinding(c domain.Category, v any) domain.Finding {
	f := domain.Finding{Category: c, Evidence: []domain.Evidence{}}

	obj, ok := asObject(v)
	if !ok {
		f.Status = domain.ParseStatus(asString(v))
		return f
	}

	f.Status = domain.ParseStatus(asString(lookupValue(obj, statusAliases)))
	f.Evidence = trimEvidence(parseEvidence(lookupValue(obj, evidenceAliases)))
	return f
}

// mergeFindings keeps the more favourable status and the union of evidence.
func mergeFindings(a, b domain.Finding) domain.Finding {
	out := a
	if b.Status.Rank() > a.Status.Rank() {
		out.Status = b.Status
	}
	out.Evidence = trimEvidence(append(append([]domain.Evidence{}, a.Evidence...), b.Evidence...))
	return out
}

func parseEvidence(v any) []domain.Evidence {
	var evidence []domain.Evidence
	for _, item := range asList(v) {
		if obj, ok := asObject(item); ok {
			evidence = append(evidence, domain.Evidence{
				Quote: asString(lookupValue(obj, quoteAliases)),
				Page:  parsePage(lookupValue(obj, pageAliases)),
			})
			continue
		}
		evidence = append(evidence, domain.Evidence{Quote: asString(item)})
	}
	return evidence
}

// trimEvidence normalises quotes, drops empty and repeated ones and caps the list.
func trimEvidence(evidence []domain.Evidence) []domain.Evidence {
	out := make([]domain.Evidence, 0, domain.MaxEvidencePerFinding)
	normalised := lo.FilterMap(evidence, func(e domain.Evidence, _ int) (domain.Evidence, bool) {
		e.Quote = normaliseQuote(e.Quote)
		return e, e.Quote != ""
	})
	for _, e := range lo.UniqBy(normalised, func(e domain.Evidence) string { return e.Quote }) {
		if len(out) == domain.MaxEvidencePerFinding {
			break
		}
		out = append(out, e)
	}
	return out
}

// normaliseQuote collapses whitespace and truncates to MaxQuoteLength characters.
func normaliseQuote(q string) string {
	q = collapseSpace(q)
	if utf8.RuneCountInString(q) > domain.MaxQuoteLength {
		q = string([]rune(q)[:domain.MaxQuoteLength])
	}
	return strings.TrimSpace(q)
}

// parsePage accepts positive integers as numbers or digit strings.
// Anything else yields 0, meaning no page.
func parsePage(v any) int {
	switch t := v.(type) {
	case float64:
		if t >= 1 && t == math.Trunc(t) && t <= math.MaxInt32 {
			return int(t)
		}
	case int:
		if t >= 1 {
			return t
		}
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err == nil && n >= 1 {
			return n
		}
	}
	return 0
}
