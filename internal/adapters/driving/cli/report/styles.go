// Package report renders analysis results for the terminal.
package report

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

// Theme defines the colour palette of the report.
type Theme struct {
	// Primary is the main accent colour.
	Primary lipgloss.Color

	// Muted is for less important text.
	Muted lipgloss.Color

	// Success marks met requirements and good scores.
	Success lipgloss.Color

	// Warning marks partial coverage.
	Warning lipgloss.Color

	// Error marks missing requirements and poor scores.
	Error lipgloss.Color

	// Border is the border colour.
	Border lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary: lipgloss.Color("#7C3AED"), // Purple
		Muted:   lipgloss.Color("#6C7086"), // Medium gray
		Success: lipgloss.Color("#A6E3A1"), // Green
		Warning: lipgloss.Color("#F9E2AF"), // Yellow
		Error:   lipgloss.Color("#F38BA8"), // Red
		Border:  lipgloss.Color("#45475A"), // Border gray
	}
}

// Styles contains pre-configured lipgloss styles bound to one output.
type Styles struct {
	theme *Theme

	Title   lipgloss.Style
	Heading lipgloss.Style
	Normal  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Banner  lipgloss.Style
}

// NewStyles creates styles for w. Colours are dropped when w is not a terminal.
func NewStyles(w io.Writer, theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	r := lipgloss.NewRenderer(w)

	return &Styles{
		theme:   theme,
		Title:   r.NewStyle().Bold(true).Foreground(theme.Primary),
		Heading: r.NewStyle().Bold(true).Underline(true),
		Normal:  r.NewStyle(),
		Muted:   r.NewStyle().Foreground(theme.Muted),
		Success: r.NewStyle().Foreground(theme.Success),
		Warning: r.NewStyle().Foreground(theme.Warning),
		Error:   r.NewStyle().Foreground(theme.Error),
		Banner: r.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 2),
	}
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// ForStatus picks the style matching a finding status.
func (s *Styles) ForStatus(status domain.Status) lipgloss.Style {
	switch status {
	case domain.StatusMet, domain.StatusPresent:
		return s.Success
	case domain.StatusPartial:
		return s.Warning
	case domain.StatusMissing, domain.StatusNotFound:
		return s.Error
	default:
		return s.Muted
	}
}

// ForScore picks the style for a 0-100 compliance score.
func (s *Styles) ForScore(score int) lipgloss.Style {
	switch {
	case score >= 80:
		return s.Success
	case score >= 50:
		return s.Warning
	default:
		return s.Error
	}
}

// ForSeverity picks the style for an action item.
func (s *Styles) ForSeverity(severity domain.Severity) lipgloss.Style {
	switch severity {
	case domain.SeverityHigh:
		return s.Error
	case domain.SeverityMedium:
		return s.Warning
	default:
		return s.Muted
	}
}
