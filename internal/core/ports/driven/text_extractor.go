package driven

import (
	"context"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

// TextExtractor turns document bytes into ordered text with optional page boundaries.
// Each extractor handles specific MIME types (e.g., PDF, DOCX).
type TextExtractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Extract reads the document bytes.
	// Unreadable input (e.g. scanned PDFs without a text layer) returns domain.ErrExtractionFailed.
	Extract(ctx context.Context, content []byte) (*domain.Document, error)
}

// ExtractorRegistry selects the appropriate text extractor for a document.
type ExtractorRegistry interface {
	// Extract detects the document type and dispatches to the matching extractor.
	// mimeHint and name are used when content sniffing is inconclusive.
	// Unknown types return domain.ErrUnsupportedFormat.
	Extract(ctx context.Context, content []byte, mimeHint, name string) (*domain.Document, error)

	// Register adds an extractor to the registry.
	Register(extractor TextExtractor)

	// SupportedMIMETypes returns all MIME types that can be extracted.
	SupportedMIMETypes() []string
}
