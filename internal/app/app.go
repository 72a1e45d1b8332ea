// Package app wires adapters and services into a runnable dpa-check instance.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/dpa-check/internal/adapters/driven/ai"
	"github.com/custodia-labs/dpa-check/internal/adapters/driven/config/file"
	"github.com/custodia-labs/dpa-check/internal/chunker"
	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driving"
	"github.com/custodia-labs/dpa-check/internal/core/services"
	"github.com/custodia-labs/dpa-check/internal/logger"
	"github.com/custodia-labs/dpa-check/internal/normalisers"
)

// App holds the long-lived components shared by all commands.
type App struct {
	Settings   *services.SettingsService
	Prompts    *file.PromptStore
	Extractors *normalisers.Registry
}

// New opens the configuration in configDir (default ~/.dpa-check).
func New(configDir string) (*App, error) {
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	promptDir := ""
	if configDir != "" {
		promptDir = filepath.Join(configDir, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}

	return &App{
		Settings:   services.NewSettingsService(store, ai.NewConfigValidator()),
		Prompts:    prompts,
		Extractors: normalisers.Default(),
	}, nil
}

// NewAnalyzer builds the analysis pipeline for the given settings.
// The Oracle is pinged first; the returned release func closes it.
func (a *App) NewAnalyzer(ctx context.Context, settings *domain.AppSettings) (driving.AnalysisService, func(), error) {
	oracle, err := ai.CreateAndValidateOracle(ctx, settings)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Oracle: %s (%s)", settings.LLM.Provider.Description(), oracle.ModelName())
	logger.Debug("Chunking: target %d, ceiling %d, max %d chunks; concurrency %d",
		settings.Analysis.TargetTokens, settings.Analysis.HardMaxTokens,
		settings.Analysis.MaxChunks, settings.Analysis.Concurrency)

	split := chunker.New(
		chunker.WithTargetTokens(settings.Analysis.TargetTokens),
		chunker.WithHardMaxTokens(settings.Analysis.HardMaxTokens),
		chunker.WithMaxChunks(settings.Analysis.MaxChunks),
	)

	svc := services.NewAnalysisService(oracle, split,
		services.WithExtractors(a.Extractors),
		services.WithPromptStore(a.Prompts),
		services.WithRetryPolicy(services.NewRetryPolicy(settings.Retry)),
		services.WithConcurrency(settings.Analysis.Concurrency),
		services.WithMinTextChars(settings.Analysis.MinTextChars),
	)

	release := func() {
		if err := oracle.Close(); err != nil {
			logger.Warn("close oracle: %v", err)
		}
	}
	return svc, release, nil
}
