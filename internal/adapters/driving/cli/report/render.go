package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

// maxQuoteWidth bounds quotes shown per finding.
const maxQuoteWidth = 100

// Render writes a human-readable report of result to w.
func Render(w io.Writer, result *domain.AnalysisResult) error {
	s := NewStyles(w, nil)
	var b strings.Builder

	renderBanner(&b, s, result)
	renderMetadata(&b, s, &result.Record)
	renderFindings(&b, s, &result.Record)
	renderActions(&b, s, result.Record.Actions)
	renderStats(&b, s, result)

	_, err := io.WriteString(w, b.String())
	return err
}

func renderBanner(b *strings.Builder, s *Styles, result *domain.AnalysisResult) {
	title := result.Record.Metadata.Title
	if title == "" {
		title = "Vertrag zur Auftragsverarbeitung"
	}

	risk := fmt.Sprintf("Risk %d/100", result.Breakdown.Risk)
	if result.Breakdown.RiskOverridden {
		risk += " (assessed)"
	}

	lines := []string{
		s.Title.Render(title),
		s.ForScore(result.Breakdown.Overall).Bold(true).Render(fmt.Sprintf("Compliance %d/100", result.Breakdown.Overall)) +
			"   " + s.ForScore(100-result.Breakdown.Risk).Render(risk),
	}
	b.WriteString(s.Banner.Render(strings.Join(lines, "\n")))
	b.WriteString("\n\n")

	if result.Record.Summary != "" {
		b.WriteString(s.Normal.Render(result.Record.Summary))
		b.WriteString("\n\n")
	}
}

func renderMetadata(b *strings.Builder, s *Styles, record *domain.AnalysisRecord) {
	meta := record.Metadata
	if meta.Date == "" && len(meta.Parties) == 0 && meta.DataProtectionOfficer == nil {
		return
	}

	b.WriteString(s.Heading.Render("Contract"))
	b.WriteString("\n")
	if meta.Date != "" {
		fmt.Fprintf(b, "  Date: %s\n", meta.Date)
	}
	for _, p := range meta.Parties {
		fmt.Fprintf(b, "  %s: %s\n", lo.Ternary(p.Role != "", p.Role, "Partei"), formatParty(p))
	}
	if dpo := meta.DataProtectionOfficer; dpo != nil {
		fmt.Fprintf(b, "  Datenschutzbeauftragter: %s\n", formatParty(*dpo))
	}
	b.WriteString("\n")
}

func formatParty(p domain.Party) string {
	if p.Country == "" {
		return p.Name
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.Country)
}

func renderFindings(b *strings.Builder, s *Styles, record *domain.AnalysisRecord) {
	b.WriteString(s.Heading.Render("Findings"))
	b.WriteString("\n")

	width := lo.Max(lo.Map(domain.AllCategories(), func(c domain.Category, _ int) int {
		return len([]rune(c.Label()))
	}))

	for _, category := range domain.AllCategories() {
		finding := record.Findings[category]
		label := category.Label()
		pad := strings.Repeat(" ", width-len([]rune(label)))
		fmt.Fprintf(b, "  %s%s  %s\n", label, pad, s.ForStatus(finding.Status).Render(finding.Status.String()))
		for _, ev := range finding.Evidence {
			quote := truncate(ev.Quote, maxQuoteWidth)
			if ev.Page > 0 {
				quote = fmt.Sprintf("%s (S. %d)", quote, ev.Page)
			}
			fmt.Fprintf(b, "      %s\n", s.Muted.Render("„"+quote+"“"))
		}
	}
	b.WriteString("\n")
}

func renderActions(b *strings.Builder, s *Styles, actions []domain.ActionItem) {
	if len(actions) == 0 {
		return
	}

	b.WriteString(s.Heading.Render("Actions"))
	b.WriteString("\n")
	for i, a := range actions {
		fmt.Fprintf(b, "  %d. %s %s: %s\n", i+1,
			s.ForSeverity(a.Severity).Render("["+a.Severity.String()+"]"),
			a.Category.Label(), a.Description)
	}
	b.WriteString("\n")
}

func renderStats(b *strings.Builder, s *Styles, result *domain.AnalysisResult) {
	st := result.Stats
	line := fmt.Sprintf("%d/%d chunks analysed, %d skipped, %d oracle calls, %d retries, %s",
		st.ChunksAnalyzed, st.ChunksTotal, st.ChunksSkipped, st.OracleCalls, st.Retries,
		st.Duration.Round(time.Millisecond))
	if st.Truncated {
		line += ", document truncated"
	}
	b.WriteString(s.Muted.Render(line))
	b.WriteString("\n")
	b.WriteString(s.Muted.Render("Request " + result.RequestID))
	b.WriteString("\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
