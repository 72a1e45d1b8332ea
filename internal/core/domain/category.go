package domain

import "strings"

// Category identifies one checklist item of a data processing agreement review.
type Category string

// Core categories carry a weight and together make up the base score.
const (
	CategoryInstructionsOnly   Category = "instructions_only"
	CategoryConfidentiality    Category = "confidentiality"
	CategorySecurityTOMs       Category = "security_TOMs"
	CategorySubprocessors      Category = "subprocessors"
	CategoryDataSubjectRights  Category = "data_subject_rights"
	CategoryBreachNotification Category = "breach_notification"
	CategoryDeletionReturn     Category = "deletion_return"
	CategoryAuditRights        Category = "audit_rights"
)

// Supplementary categories only contribute bonus points and corrections.
const (
	CategoryInternationalTransfers Category = "international_transfers"
	CategoryLiabilityCap           Category = "liability_cap"
	CategoryJurisdiction           Category = "jurisdiction"
)

var coreCategories = []Category{
	CategoryInstructionsOnly,
	CategoryConfidentiality,
	CategorySecurityTOMs,
	CategorySubprocessors,
	CategoryDataSubjectRights,
	CategoryBreachNotification,
	CategoryDeletionReturn,
	CategoryAuditRights,
}

var supplementaryCategories = []Category{
	CategoryInternationalTransfers,
	CategoryLiabilityCap,
	CategoryJurisdiction,
}

var categoryWeights = map[Category]int{
	CategoryInstructionsOnly:   15,
	CategoryConfidentiality:    10,
	CategorySecurityTOMs:       20,
	CategorySubprocessors:      15,
	CategoryDataSubjectRights:  10,
	CategoryBreachNotification: 10,
	CategoryDeletionReturn:     10,
	CategoryAuditRights:        10,
}

var categoryLabels = map[Category]string{
	CategoryInstructionsOnly:       "Weisungsgebundenheit",
	CategoryConfidentiality:        "Vertraulichkeit",
	CategorySecurityTOMs:           "Technische und organisatorische Maßnahmen",
	CategorySubprocessors:          "Unterauftragsverarbeiter",
	CategoryDataSubjectRights:      "Unterstützung bei Betroffenenrechten",
	CategoryBreachNotification:     "Meldung von Datenschutzverletzungen",
	CategoryDeletionReturn:         "Löschung und Rückgabe",
	CategoryAuditRights:            "Kontroll- und Auditrechte",
	CategoryInternationalTransfers: "Drittlandtransfers",
	CategoryLiabilityCap:           "Haftungsbegrenzung",
	CategoryJurisdiction:           "Gerichtsstand",
}

// categoryAliases lists every accepted upstream phrasing per category.
// Keys are compared after NormalizeKey; the canonical key is always accepted.
var categoryAliases = map[Category][]string{
	CategoryInstructionsOnly: {
		"instructions", "instruction", "processing_on_instructions", "documented_instructions",
		"instructions_only_processing", "weisung", "weisungen", "weisungsgebundenheit",
		"weisungsrecht", "verarbeitung_nur_auf_weisung",
	},
	CategoryConfidentiality: {
		"confidentiality_obligation", "confidentiality_of_personnel", "vertraulichkeit",
		"verschwiegenheit", "verschwiegenheitspflicht", "datengeheimnis",
	},
	CategorySecurityTOMs: {
		"toms", "tom", "security", "security_measures", "technical_organizational_measures",
		"technical_and_organisational_measures", "technical_and_organizational_measures",
		"technische_und_organisatorische_massnahmen", "datensicherheit", "art_32",
	},
	CategorySubprocessors: {
		"subprocessor", "sub_processors", "sub_processor", "subcontractors", "subprocessing",
		"unterauftragsverarbeiter", "unterauftragnehmer", "subunternehmer",
	},
	CategoryDataSubjectRights: {
		"data_subject_rights_support", "dsr", "rights_of_data_subjects", "betroffenenrechte",
		"unterstuetzung_betroffenenrechte", "rechte_der_betroffenen",
	},
	CategoryBreachNotification: {
		"data_breach", "breach", "breach_notification_support", "incident_notification",
		"personal_data_breach", "meldepflicht", "datenpanne", "meldung_von_datenschutzverletzungen",
	},
	CategoryDeletionReturn: {
		"deletion", "return_deletion", "deletion_and_return", "return_or_deletion", "deletion_or_return",
		"loeschung", "loeschung_rueckgabe", "rueckgabe", "loeschung_und_rueckgabe",
	},
	CategoryAuditRights: {
		"audit", "audits", "audit_right", "inspections", "inspection_rights", "kontrollrechte",
		"auditrechte", "pruefrechte", "kontrollen",
	},
	CategoryInternationalTransfers: {
		"international_transfer", "third_country_transfer", "third_country_transfers", "transfers",
		"data_transfers", "drittlandtransfer", "drittlandtransfers", "drittland", "uebermittlung_drittland",
	},
	CategoryLiabilityCap: {
		"liability", "liability_limitation", "limitation_of_liability", "haftung",
		"haftungsbegrenzung", "haftungsbeschraenkung",
	},
	CategoryJurisdiction: {
		"governing_law", "venue", "place_of_jurisdiction", "applicable_law", "gerichtsstand",
		"anwendbares_recht", "rechtswahl",
	},
}

var categoryIndex = buildCategoryIndex()

func buildCategoryIndex() map[string]Category {
	index := make(map[string]Category)
	for _, c := range AllCategories() {
		index[NormalizeKey(string(c))] = c
		for _, alias := range categoryAliases[c] {
			index[NormalizeKey(alias)] = c
		}
	}
	return index
}

// CoreCategories returns the eight weighted categories in canonical order.
func CoreCategories() []Category {
	return append([]Category(nil), coreCategories...)
}

// SupplementaryCategories returns the three bonus-only categories in canonical order.
func SupplementaryCategories() []Category {
	return append([]Category(nil), supplementaryCategories...)
}

// AllCategories returns all eleven categories in canonical order (core first).
func AllCategories() []Category {
	all := make([]Category, 0, len(coreCategories)+len(supplementaryCategories))
	all = append(all, coreCategories...)
	return append(all, supplementaryCategories...)
}

// CategoryAliases returns the accepted aliases for a category, excluding the canonical key.
func CategoryAliases(c Category) []string {
	return append([]string(nil), categoryAliases[c]...)
}

// ParseCategory maps a key or any known alias to its canonical category.
// Unknown keys return false and must be discarded by the caller.
func ParseCategory(key string) (Category, bool) {
	c, ok := categoryIndex[NormalizeKey(key)]
	return c, ok
}

// IsCore returns true for the eight weighted categories.
func (c Category) IsCore() bool {
	_, ok := categoryWeights[c]
	return ok
}

// IsSupplementary returns true for the three bonus-only categories.
func (c Category) IsSupplementary() bool {
	switch c {
	case CategoryInternationalTransfers, CategoryLiabilityCap, CategoryJurisdiction:
		return true
	default:
		return false
	}
}

// IsValid returns true if the category is one of the eleven canonical keys.
func (c Category) IsValid() bool {
	return c.IsCore() || c.IsSupplementary()
}

// Weight returns the score weight of a core category, 0 otherwise.
func (c Category) Weight() int {
	return categoryWeights[c]
}

// Order returns the canonical position of the category, or len(AllCategories()) if unknown.
func (c Category) Order() int {
	for i, known := range AllCategories() {
		if known == c {
			return i
		}
	}
	return len(coreCategories) + len(supplementaryCategories)
}

// Label returns the German display label.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return unknownDescription
}

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

var keyReplacer = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	" ", "_", "-", "_", "/", "_", ".", "_",
)

// NormalizeKey lowercases a field or vocabulary key, transliterates German umlauts,
// and folds separators to single underscores.
func NormalizeKey(key string) string {
	key = keyReplacer.Replace(strings.ToLower(strings.TrimSpace(key)))
	for strings.Contains(key, "__") {
		key = strings.ReplaceAll(key, "__", "_")
	}
	return strings.Trim(key, "_")
}
