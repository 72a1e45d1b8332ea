// Package cli provides the dpa-check command line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driving"
	"github.com/custodia-labs/dpa-check/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// AnalyzerFactory builds an analysis pipeline for the given settings.
// The returned release func frees the Oracle connection.
type AnalyzerFactory func(ctx context.Context, settings *domain.AppSettings) (driving.AnalysisService, func(), error)

// PromptSource serves prompt templates and reloads overrides while a server runs.
type PromptSource interface {
	driven.PromptStore
	Watch(ctx context.Context) error
}

// Dependencies are the services commands operate on.
type Dependencies struct {
	Settings    driving.SettingsService
	NewAnalyzer AnalyzerFactory
	Prompts     PromptSource
}

var (
	settingsService driving.SettingsService
	newAnalyzer     AnalyzerFactory
	prompts         PromptSource
)

var rootCmd = &cobra.Command{
	Use:   "dpa-check",
	Short: "Check data processing agreements against Art. 28 GDPR",
	Long: `dpa-check analyses data processing agreements (Auftragsverarbeitungsverträge)
with a language model and scores them against the mandatory clauses of
Art. 28 GDPR.

Documents may be plain text, Markdown, HTML, DOCX or PDF. Long contracts are
split into chunks, analysed one by one and merged into a single record.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if v, err := cmd.Flags().GetBool("verbose"); err == nil && v {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Print progress and debug output")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command with the given dependencies.
func Execute(ctx context.Context, deps Dependencies) error {
	settingsService = deps.Settings
	newAnalyzer = deps.NewAnalyzer
	prompts = deps.Prompts
	return rootCmd.ExecuteContext(ctx)
}
