package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dpa-check/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/dpa-check/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis server",
	Long: `Start an HTTP server that analyses uploaded contracts.

Endpoints:
  POST /analyze-document   multipart upload (field "file" or "text"),
                           JSON {"text": "..."}, text/plain, or raw document bytes
  GET  /healthz            liveness probe

Prompt overrides in ~/.dpa-check/prompts are reloaded while the server runs.

Examples:
  dpa-check serve
  dpa-check serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides settings)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if settingsService == nil || newAnalyzer == nil {
		return errors.New("analysis service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		settings.Server.Addr = addr
	}

	ctx := cmd.Context()
	analyzer, release, err := newAnalyzer(ctx, settings)
	if err != nil {
		return err
	}
	defer release()

	logger.SetTimestamps(true)
	defer logger.SetTimestamps(false)

	if prompts != nil {
		if err := prompts.Watch(ctx); err != nil {
			logger.Warn("Prompt reload disabled: %v", err)
		}
	}

	server := httpapi.NewServer(analyzer, httpapi.WithMaxUploadBytes(settings.Server.MaxUploadBytes))
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", settings.Server.Addr)
	return server.Run(ctx, settings.Server.Addr)
}
