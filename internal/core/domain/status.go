package domain

// Status is the assessment of one category.
// Core categories use met, partial and missing; supplementary categories
// additionally use present and not_found.
type Status string

// Known statuses.
const (
	// StatusUnknown means the category was not assessed at all.
	StatusUnknown  Status = ""
	StatusMet      Status = "met"
	StatusPartial  Status = "partial"
	StatusMissing  Status = "missing"
	StatusPresent  Status = "present"
	StatusNotFound Status = "not_found"
)

var statusVocabulary = map[Status][]string{
	StatusMet: {
		"met", "fulfilled", "compliant", "satisfied", "complete", "yes", "ok",
		"erfuellt", "ja", "vollstaendig", "gegeben",
	},
	StatusPartial: {
		"partial", "partially", "partially_met", "partly", "partially_compliant", "incomplete",
		"teilweise", "teilweise_erfuellt", "unvollstaendig",
	},
	StatusMissing: {
		"missing", "not_met", "non_compliant", "noncompliant", "absent", "no", "unfulfilled",
		"fehlt", "fehlend", "nicht_erfuellt", "nein",
	},
	StatusPresent: {
		"present", "exists", "included", "found", "vorhanden", "enthalten", "geregelt",
	},
	StatusNotFound: {
		"not_found", "not_present", "none", "not_included", "n_a", "na",
		"nicht_gefunden", "nicht_vorhanden", "nicht_geregelt",
	},
}

var statusIndex = buildStatusIndex()

func buildStatusIndex() map[string]Status {
	index := make(map[string]Status)
	for status, words := range statusVocabulary {
		for _, w := range words {
			index[NormalizeKey(w)] = status
		}
	}
	return index
}

// ParseStatus canonicalises any accepted status phrasing.
// Unrecognised input yields StatusUnknown.
func ParseStatus(s string) Status {
	return statusIndex[NormalizeKey(s)]
}

// ForCore restricts a status to the core vocabulary.
func (s Status) ForCore() Status {
	switch s {
	case StatusMet, StatusPresent:
		return StatusMet
	case StatusPartial:
		return StatusPartial
	default:
		return StatusMissing
	}
}

// Factor returns the score multiplier of the status.
func (s Status) Factor() float64 {
	switch s {
	case StatusMet, StatusPresent:
		return 1.0
	case StatusPartial:
		return 0.5
	default:
		return 0.0
	}
}

// IsAbsent returns true for missing and not_found.
func (s Status) IsAbsent() bool {
	return s == StatusMissing || s == StatusNotFound
}

// Rank orders statuses from most to least favourable for merging duplicates.
// Higher is more favourable.
func (s Status) Rank() int {
	switch s {
	case StatusMet:
		return 5
	case StatusPresent:
		return 4
	case StatusPartial:
		return 3
	case StatusMissing:
		return 2
	case StatusNotFound:
		return 1
	default:
		return 0
	}
}

// String returns the string representation.
func (s Status) String() string {
	if s == StatusUnknown {
		return "unknown"
	}
	return string(s)
}

// Severity is the urgency of an action item.
type Severity string

// Known severities.
const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

var severityVocabulary = map[string]Severity{
	"high": SeverityHigh, "critical": SeverityHigh, "hoch": SeverityHigh, "kritisch": SeverityHigh,
	"medium": SeverityMedium, "moderate": SeverityMedium, "mittel": SeverityMedium, "normal": SeverityMedium,
	"low": SeverityLow, "minor": SeverityLow, "niedrig": SeverityLow, "gering": SeverityLow,
}

// ParseSeverity canonicalises a severity phrasing.
func ParseSeverity(s string) (Severity, bool) {
	sev, ok := severityVocabulary[NormalizeKey(s)]
	return sev, ok
}

// Rank orders severities for sorting: high first.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}

// AtLeastMedium returns true for medium and high severities.
func (s Severity) AtLeastMedium() bool {
	return s == SeverityHigh || s == SeverityMedium
}

// String returns the string representation.
func (s Severity) String() string {
	return string(s)
}
