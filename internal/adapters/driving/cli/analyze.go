package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dpa-check/internal/adapters/driving/cli/report"
	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/services"
	"github.com/custodia-labs/dpa-check/internal/logger"
)

// ErrScoreBelowThreshold is returned when --fail-under is set and the contract scores lower.
var ErrScoreBelowThreshold = errors.New("compliance score below threshold")

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyse a data processing agreement",
	Long: `Analyse a data processing agreement and print a compliance report.

The document is read from the given file, from stdin when the file is "-",
or taken verbatim from --text. Supported formats are plain text, Markdown,
HTML, DOCX and PDF (PDF requires pdftotext from poppler).

Examples:
  dpa-check analyze avv.pdf
  dpa-check analyze --json avv.docx > report.json
  cat avv.txt | dpa-check analyze -
  dpa-check analyze --fail-under 80 avv.pdf`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("text", "", "Analyse this text instead of a file")
	analyzeCmd.Flags().String("mime", "", "MIME type of the document (sniffed when empty)")
	analyzeCmd.Flags().Bool("json", false, "Print the result as JSON")
	analyzeCmd.Flags().Int("concurrency", 0, "Chunk analyses in flight (overrides settings)")
	analyzeCmd.Flags().Int("max-chunks", 0, "Maximum number of chunks (overrides settings)")
	analyzeCmd.Flags().Int("fail-under", 0, "Exit with an error when the compliance score is below this value")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if settingsService == nil || newAnalyzer == nil {
		return errors.New("analysis service not configured")
	}

	input, err := readAnalyzeInput(cmd, args)
	if err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if err := applyAnalyzeFlags(cmd, settings); err != nil {
		return err
	}

	analyzer, release, err := newAnalyzer(cmd.Context(), settings)
	if err != nil {
		return err
	}
	defer release()

	progress := func(phase domain.Phase, detail string) {
		if detail == "" {
			logger.Info("%s", phase)
			return
		}
		logger.Info("%s: %s", phase, detail)
	}

	result, err := analyzer.Analyze(cmd.Context(), input, progress)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else if err := report.Render(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	failUnder, _ := cmd.Flags().GetInt("fail-under")
	if failUnder > 0 && result.Breakdown.Overall < failUnder {
		return fmt.Errorf("%w: %d < %d", ErrScoreBelowThreshold, result.Breakdown.Overall, failUnder)
	}
	return nil
}

// readAnalyzeInput builds the request from --text, stdin or a file.
func readAnalyzeInput(cmd *cobra.Command, args []string) (domain.AnalysisInput, error) {
	text, _ := cmd.Flags().GetString("text")
	mimeType, _ := cmd.Flags().GetString("mime")

	switch {
	case text != "" && len(args) > 0:
		return domain.AnalysisInput{}, errors.New("use either --text or a file, not both")
	case text != "":
		return domain.AnalysisInput{Text: text}, nil
	case len(args) == 0:
		return domain.AnalysisInput{}, errors.New("no document given: pass a file, \"-\" for stdin, or --text")
	}

	if args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return domain.AnalysisInput{}, fmt.Errorf("read stdin: %w", err)
		}
		return domain.AnalysisInput{Content: data, MIMEType: mimeType}, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return domain.AnalysisInput{}, fmt.Errorf("read document: %w", err)
	}
	return domain.AnalysisInput{
		Content:  data,
		MIMEType: mimeType,
		Name:     filepath.Base(args[0]),
	}, nil
}

// applyAnalyzeFlags copies explicit flag overrides into settings and revalidates.
func applyAnalyzeFlags(cmd *cobra.Command, settings *domain.AppSettings) error {
	if cmd.Flags().Changed("concurrency") {
		settings.Analysis.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	if cmd.Flags().Changed("max-chunks") {
		settings.Analysis.MaxChunks, _ = cmd.Flags().GetInt("max-chunks")
	}
	return services.ValidateSettings(settings)
}
