package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driving"
	"github.com/custodia-labs/dpa-check/internal/extractor"
	"github.com/custodia-labs/dpa-check/internal/logger"
	"github.com/custodia-labs/dpa-check/internal/prompts"
	"github.com/custodia-labs/dpa-check/internal/reconciler"
	"github.com/custodia-labs/dpa-check/internal/scorer"
)

// Ensure AnalysisService implements the interfaces.
var (
	_ driving.AnalysisService = (*AnalysisService)(nil)
	_ driven.PromptStoreAware = (*AnalysisService)(nil)
)

// pagesUnknown is shown to the Oracle when a chunk has no page information.
const pagesUnknown = "unbekannt"

// AnalysisService runs the contract analysis pipeline:
// chunk, analyse each chunk, merge, extract, reconcile and score.
type AnalysisService struct {
	oracle       driven.Oracle
	chunker      driven.Chunker
	extractors   driven.ExtractorRegistry
	promptStore  driven.PromptStore
	retry        *RetryPolicy
	concurrency  int
	minTextChars int
}

// AnalysisOption configures the analysis service.
type AnalysisOption func(*AnalysisService)

// WithExtractors sets the registry used for document bytes.
// Without it only text input is accepted.
func WithExtractors(registry driven.ExtractorRegistry) AnalysisOption {
	return func(s *AnalysisService) {
		s.extractors = registry
	}
}

// WithPromptStore sets the source of prompt templates.
func WithPromptStore(store driven.PromptStore) AnalysisOption {
	return func(s *AnalysisService) {
		s.promptStore = store
	}
}

// WithRetryPolicy sets the backoff policy for Oracle calls.
func WithRetryPolicy(policy *RetryPolicy) AnalysisOption {
	return func(s *AnalysisService) {
		if policy != nil {
			s.retry = policy
		}
	}
}

// WithConcurrency sets how many chunks are analysed at once.
func WithConcurrency(n int) AnalysisOption {
	return func(s *AnalysisService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMinTextChars sets the minimum number of non-space characters an input needs.
func WithMinTextChars(n int) AnalysisOption {
	return func(s *AnalysisService) {
		if n >= 0 {
			s.minTextChars = n
		}
	}
}

// NewAnalysisService creates the analysis service.
// The oracle may be nil, in which case every request fails with ErrOracleUnavailable.
func NewAnalysisService(oracle driven.Oracle, chunker driven.Chunker, opts ...AnalysisOption) *AnalysisService {
	defaults := domain.DefaultAppSettings()

	s := &AnalysisService{
		oracle:       oracle,
		chunker:      chunker,
		retry:        NewRetryPolicy(defaults.Retry),
		concurrency:  defaults.Analysis.Concurrency,
		minTextChars: defaults.Analysis.MinTextChars,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *AnalysisService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// run is the per-request accumulator.
type run struct {
	progressMu sync.Mutex
	progress   driving.ProgressFunc

	calls   atomic.Int64
	retries atomic.Int64
}

func (r *run) report(phase domain.Phase, format string, args ...any) {
	if r.progress == nil {
		return
	}
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.progress(phase, fmt.Sprintf(format, args...))
}

// templates holds the prompts for one request.
type templates struct {
	system string
	chunk  string
	merge  string
}

// Analyze runs the full pipeline for one input.
func (s *AnalysisService) Analyze(
	ctx context.Context, input domain.AnalysisInput, progress driving.ProgressFunc,
) (*domain.AnalysisResult, error) {
	start := time.Now()
	requestID := uuid.NewString()
	r := &run{progress: progress}

	logger.Section("Analysis " + requestID)

	doc, err := s.document(ctx, input)
	if err != nil {
		return nil, s.fail(r, err)
	}
	doc.ID = requestID
	logger.Debug("Document: %d bytes, %d pages", len(doc.Content), doc.PageCount())

	if n := countNonSpace(doc.Content); n < s.minTextChars {
		return nil, s.fail(r, domain.NewAnalysisError(domain.PhaseExtracting, domain.ErrInputEmpty,
			fmt.Sprintf("document has %d characters of text, need at least %d", n, s.minTextChars), nil))
	}
	if s.oracle == nil {
		return nil, s.fail(r, domain.NewAnalysisError(domain.PhaseChunking, domain.ErrOracleUnavailable,
			"no analysis model configured", nil))
	}

	tmpl, err := s.templates()
	if err != nil {
		return nil, s.fail(r, domain.NewAnalysisError(domain.PhaseChunking, nil, "load prompts", err))
	}

	// Chunking
	logger.Section("Chunking")
	chunks := s.chunker.Chunk(doc)
	stats := domain.RunStats{ChunksTotal: len(chunks)}
	if len(chunks) > 0 {
		stats.Truncated = chunks[len(chunks)-1].End() < len(doc.Content)
	}
	logger.Debug("%s produced %d chunks (truncated=%t)", s.chunker.Name(), len(chunks), stats.Truncated)
	r.report(domain.PhaseChunking, "%d Abschnitte", len(chunks))
	if stats.Truncated {
		logger.Warn("Document exceeds the chunk limit, remaining text is not analysed")
	}

	// Analysis
	logger.Section("Analyzing")
	partials, err := s.analyzeChunks(ctx, r, tmpl, chunks)
	stats.OracleCalls = int(r.calls.Load())
	stats.Retries = int(r.retries.Load())
	if err != nil {
		return nil, s.fail(r, err)
	}
	stats.ChunksAnalyzed = len(partials)
	stats.ChunksSkipped = len(chunks) - len(partials)
	if len(partials) == 0 {
		return nil, s.fail(r, domain.NewAnalysisError(domain.PhaseAnalyzing, domain.ErrNoUsableResults,
			fmt.Sprintf("none of %d chunks produced a usable result", len(chunks)), nil))
	}

	// Merging
	logger.Section("Merging")
	r.report(domain.PhaseMerging, "%d Teilergebnisse", len(partials))
	payload, err := json.Marshal(partials)
	if err != nil {
		return nil, s.fail(r, domain.NewAnalysisError(domain.PhaseMerging, nil, "encode partial results", err))
	}
	raw, err := s.call(ctx, r, "merge", driven.OraclePrompt{
		System: tmpl.system,
		User:   fmt.Sprintf(tmpl.merge, len(partials), payload),
	})
	stats.OracleCalls = int(r.calls.Load())
	stats.Retries = int(r.retries.Load())
	if err != nil {
		return nil, s.fail(r, oracleFailure(domain.PhaseMerging, "merge call failed", err))
	}

	// Extracting
	r.report(domain.PhaseParsing, "")
	merged, err := extractor.Extract(raw)
	if err != nil {
		logger.Debug("Unparseable merge output: %.200q", raw)
		return nil, s.fail(r, domain.NewAnalysisError(domain.PhaseParsing, domain.ErrMalformedOutput,
			"merged result is not valid JSON", err))
	}

	// Reconciling and scoring
	r.report(domain.PhaseReconciling, "")
	record := reconciler.Reconcile(merged)
	if record.Metadata.Title == "" {
		record.Metadata.Title = doc.Title
	}
	breakdown := scorer.Score(record)
	scorer.Apply(&record, breakdown)

	stats.Duration = time.Since(start)
	logger.Section("Result")
	logger.Info("Compliance %d, risk %d (overridden=%t), %d actions",
		breakdown.Overall, breakdown.Risk, breakdown.RiskOverridden, len(record.Actions))
	logger.Debug("Stats: %+v", stats)
	r.report(domain.PhaseScored, "%d/100", breakdown.Overall)

	return &domain.AnalysisResult{
		RequestID: requestID,
		Record:    record,
		Breakdown: breakdown,
		Stats:     stats,
	}, nil
}

// document resolves the input into extracted text.
func (s *AnalysisService) document(ctx context.Context, input domain.AnalysisInput) (*domain.Document, error) {
	if strings.TrimSpace(input.Text) != "" || len(input.Content) == 0 {
		return &domain.Document{
			URI:       input.Name,
			Title:     input.Name,
			MIMEType:  "text/plain",
			Content:   input.Text,
			CreatedAt: time.Now(),
		}, nil
	}

	if s.extractors == nil {
		return nil, domain.NewAnalysisError(domain.PhaseExtracting, domain.ErrUnsupportedFormat,
			"document input is not supported, send text instead", nil)
	}

	logger.Debug("Extracting text from %d bytes (hint %q, name %q)", len(input.Content), input.MIMEType, input.Name)
	doc, err := s.extractors.Extract(ctx, input.Content, input.MIMEType, input.Name)
	if err != nil {
		kind := domain.ErrExtractionFailed
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			kind = domain.ErrUnsupportedFormat
		}
		return nil, domain.NewAnalysisError(domain.PhaseExtracting, kind, "could not read document", err)
	}
	if doc.URI == "" {
		doc.URI = input.Name
	}
	if doc.Title == "" {
		doc.Title = input.Name
	}
	return doc, nil
}

func (s *AnalysisService) templates() (templates, error) {
	var t templates
	var err error
	if t.system, err = prompts.Load(s.promptStore, driven.PromptSystem); err != nil {
		return t, err
	}
	if t.chunk, err = prompts.Load(s.promptStore, driven.PromptChunkAnalysis); err != nil {
		return t, err
	}
	if t.merge, err = prompts.Load(s.promptStore, driven.PromptMerge); err != nil {
		return t, err
	}
	return t, nil
}

// analyzeChunks analyses every chunk and returns the usable partial records in chunk order.
// Malformed output skips the chunk; any Oracle failure aborts the request.
func (s *AnalysisService) analyzeChunks(
	ctx context.Context, r *run, tmpl templates, chunks []domain.Chunk,
) ([]domain.StructuredRecord, error) {
	slots := make([]domain.StructuredRecord, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			pages := chunk.PageRange()
			if pages == "" {
				pages = pagesUnknown
			}
			r.report(domain.PhaseAnalyzing, "Abschnitt %d/%d", chunk.Index, chunk.Total)

			op := fmt.Sprintf("chunk %d/%d", chunk.Index, chunk.Total)
			raw, err := s.call(gctx, r, op, driven.OraclePrompt{
				System: tmpl.system,
				User:   fmt.Sprintf(tmpl.chunk, chunk.Index, chunk.Total, pages, chunk.Content),
			})
			if err != nil {
				return oracleFailure(domain.PhaseAnalyzing, op+" failed", err)
			}

			rec, err := extractor.Extract(raw)
			if err != nil {
				logger.Warn("Skipping %s: %v", op, err)
				return nil
			}
			logger.Debug("%s: %d top-level fields", op, len(rec))
			slots[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	partials := make([]domain.StructuredRecord, 0, len(slots))
	for _, rec := range slots {
		if rec != nil {
			partials = append(partials, rec)
		}
	}
	return partials, nil
}

// call performs one Oracle request under the retry policy.
func (s *AnalysisService) call(ctx context.Context, r *run, op string, prompt driven.OraclePrompt) (string, error) {
	out, retries, err := s.retry.Do(ctx, op, func(ctx context.Context) (string, error) {
		r.calls.Add(1)
		return s.oracle.Analyze(ctx, prompt)
	})
	r.retries.Add(int64(retries))
	return out, err
}

// fail logs the failure and reports the terminal phase.
func (s *AnalysisService) fail(r *run, err error) error {
	logger.Warn("Analysis failed: %v", err)
	r.report(domain.PhaseFailed, "%v", err)
	return err
}

// oracleFailure classifies an error returned by the retry loop.
func oracleFailure(phase domain.Phase, reason string, err error) error {
	kind := domain.ErrOracleFatal
	if errors.Is(err, domain.ErrOracleTransient) {
		kind = domain.ErrOracleTransient
	}
	return domain.NewAnalysisError(phase, kind, reason, err)
}

// countNonSpace counts the characters of text that are not whitespace.
func countNonSpace(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
