package reconciler

import (
	"slices"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

var (
	severityAliases    = []string{"severity", "priority", "prioritaet", "schwere", "dringlichkeit", "level"}
	descriptionAliases = []string{
		"description", "action", "text", "recommendation", "beschreibung", "massnahme", "empfehlung", "title",
	}
)

// categoryKeywords drives category inference for actions without a usable category.
// Keywords are normalised and match the start of any word, or anywhere when
// they contain an underscore. Categories are checked in canonical order.
var categoryKeywords = map[domain.Category][]string{
	domain.CategoryInstructionsOnly: {"weisung", "instruction", "instruct"},
	domain.CategoryConfidentiality: {
		"vertraulich", "verschwiegen", "confidential", "datengeheimnis", "geheimhaltung",
	},
	domain.CategorySecurityTOMs: {
		"tom", "toms", "technisch", "organisatorisch", "sicherheit", "security", "verschluessel",
		"encrypt", "zugriffskontroll", "art_32",
	},
	domain.CategorySubprocessors: {
		"unterauftrag", "subunternehm", "subprocessor", "sub_processor", "subcontract", "unterbeauftrag",
	},
	domain.CategoryDataSubjectRights: {
		"betroffen", "data_subject", "auskunft", "berichtigung", "widerspruch", "dsr",
	},
	domain.CategoryBreachNotification: {
		"breach", "datenpanne", "datenschutzverletz", "meldepflicht", "meldung", "melden", "incident",
		"notif", "72_stunden", "72_hours",
	},
	domain.CategoryDeletionReturn: {
		"loesch", "delet", "rueckgabe", "herausgabe", "vernicht", "destroy", "erase", "return",
	},
	domain.CategoryAuditRights: {"audit", "kontroll", "pruef", "inspekt", "inspect", "vor_ort"},
	domain.CategoryInternationalTransfers: {
		"drittland", "drittstaat", "transfer", "uebermittl", "standardvertragsklausel", "scc",
		"third_countr", "adequacy", "angemessenheit",
	},
	domain.CategoryLiabilityCap: {"haftung", "liabil", "indemn", "schadensersatz", "freistell"},
	domain.CategoryJurisdiction: {
		"gerichtsstand", "jurisdiction", "governing_law", "anwendbar", "rechtswahl", "venue",
	},
}

func reconcileActions(obj map[string]any) []domain.ActionItem {
	var actions []domain.ActionItem

	for _, alias := range actionsAliases {
		v, ok := lookup(obj, []string{alias})
		if !ok {
			continue
		}
		for _, item := range asList(v) {
			if a, ok := parseAction(item); ok {
				actions = append(actions, a)
			}
		}
	}

	actions = lo.Uniq(actions)
	slices.SortStableFunc(actions, func(a, b domain.ActionItem) int {
		if d := a.Severity.Rank() - b.Severity.Rank(); d != 0 {
			return d
		}
		return a.Category.Order() - b.Category.Order()
	})

	if actions == nil {
		actions = []domain.ActionItem{}
	}
	return actions
}

// parseAction reads an action object or a bare description.
// Unknown severities default to medium.
func parseAction(v any) (domain.ActionItem, bool) {
	a := domain.ActionItem{Severity: domain.SeverityMedium}

	var rawCategory string
	if obj, ok := asObject(v); ok {
		a.Description = collapseSpace(asString(lookupValue(obj, descriptionAliases)))
		rawCategory = asString(lookupValue(obj, categoryKeyAliases))
		if sev, ok := domain.ParseSeverity(asString(lookupValue(obj, severityAliases))); ok {
			a.Severity = sev
		}
	} else {
		a.Description = collapseSpace(asString(v))
	}

	if a.Description == "" {
		return domain.ActionItem{}, false
	}

	if c, ok := domain.ParseCategory(rawCategory); ok {
		a.Category = c
	} else {
		a.Category = InferCategory(a.Description)
	}
	return a, true
}

// InferCategory matches free text against the keyword table.
// Without a match it falls back to the last category checked.
func InferCategory(text string) domain.Category {
	words := strings.FieldsFunc(domain.NormalizeKey(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	norm := strings.Join(words, "_")

	all := domain.AllCategories()
	for _, c := range all {
		for _, kw := range categoryKeywords[c] {
			if strings.Contains(kw, "_") {
				if strings.Contains(norm, kw) {
					return c
				}
				continue
			}
			if lo.ContainsBy(words, func(w string) bool { return strings.HasPrefix(w, kw) }) {
				return c
			}
		}
	}
	return all[len(all)-1]
}
