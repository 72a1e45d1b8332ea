package driving

import (
	"context"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

// ProgressFunc receives phase transitions of an analysis run.
// Calls are serialised but may come from worker goroutines; it must not block.
type ProgressFunc func(phase domain.Phase, detail string)

// AnalysisService analyses one contract per call.
type AnalysisService interface {
	// Analyze runs the full pipeline for one input: text extraction, chunking,
	// per-chunk Oracle analysis, merging, reconciliation and scoring.
	// Failures are returned as *domain.AnalysisError.
	Analyze(ctx context.Context, input domain.AnalysisInput, progress ProgressFunc) (*domain.AnalysisResult, error)
}
