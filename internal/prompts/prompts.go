// Package prompts holds the built-in Oracle prompt templates.
// They are used when no PromptStore is configured and seed the
// user-editable prompt files on first use.
package prompts

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
)

// defaults holds the built-in prompt templates.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaults = map[string]string{
	driven.PromptSystem: `Du bist ein erfahrener Datenschutzjurist und prüfst Auftragsverarbeitungsverträge (AVV) nach Art. 28 DSGVO.

Bewerte ausschließlich den vorgelegten Vertragstext. Erfinde keine Inhalte. Zitiere wörtlich.

Antworte NUR mit einem JSON-Objekt in genau diesem Format:
{
  "summary": "Kurze Zusammenfassung in 2-4 Sätzen",
  "metadata": {
    "title": "Vertragstitel",
    "date": "Vertragsdatum oder leer",
    "parties": [{"role": "controller|processor", "name": "Firma", "country": "Land"}],
    "data_protection_officer": {"name": "Name", "country": "Land"}
  },
  "findings": {
    "instructions_only": {"status": "met|partial|missing", "evidence": [{"quote": "wörtliches Zitat", "page": 1}]},
    "confidentiality": {...},
    "security_TOMs": {...},
    "subprocessors": {...},
    "data_subject_rights": {...},
    "breach_notification": {...},
    "deletion_return": {...},
    "audit_rights": {...},
    "international_transfers": {"status": "met|partial|missing|present|not_found", "evidence": [...]},
    "liability_cap": {...},
    "jurisdiction": {...}
  },
  "actions": [{"category": "subprocessors", "severity": "high|medium|low", "description": "Konkrete Maßnahme"}],
  "risk_score": null
}

Regeln:
- Höchstens zwei Belege je Kategorie, jedes Zitat höchstens 240 Zeichen.
- "page" nur angeben, wenn die Seitenzahl sicher bekannt ist.
- "risk_score" bleibt null. Nur wenn du das Risiko ausdrücklich anders einschätzt als die Erfüllung der Kategorien nahelegt, trage eine Zahl von 0 bis 100 ein.`,

	driven.PromptChunkAnalysis: `Abschnitt %d/%d des Vertrags (Seiten: %s).
Der Vertrag wurde in Abschnitte geteilt. Bewerte nur, was in diesem Abschnitt steht; fehlende Regelungen können in anderen Abschnitten stehen.

--- VERTRAGSTEXT ---
%s
--- ENDE ---`,

	driven.PromptMerge: `Unten stehen %d Teilergebnisse als JSON-Array, jeweils aus einem Abschnitt desselben Vertrags.
Führe sie zu EINEM Ergebnis im selben Format zusammen:
- Eine Kategorie ist "met", wenn ein Abschnitt sie vollständig regelt.
- Übernimm die aussagekräftigsten Belege (höchstens zwei je Kategorie).
- Fasse doppelte Maßnahmen zusammen und streiche Maßnahmen zu Punkten, die ein anderer Abschnitt regelt.

%s`,
}

// Default returns the built-in template for name.
func Default(name string) (string, bool) {
	p, ok := defaults[name]
	return p, ok
}

// Names returns the names of all built-in templates in sorted order.
func Names() []string {
	names := lo.Keys(defaults)
	slices.Sort(names)
	return names
}

// Load returns the template from store, falling back to the built-in one.
// A nil store always yields the built-in template.
func Load(store driven.PromptStore, name string) (string, error) {
	if store != nil {
		p, err := store.Load(name)
		if err == nil && p != "" {
			return p, nil
		}
		if _, ok := defaults[name]; !ok {
			return "", err
		}
	}
	p, ok := defaults[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	return p, nil
}
