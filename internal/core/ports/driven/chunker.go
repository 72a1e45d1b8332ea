package driven

import "github.com/custodia-labs/dpa-check/internal/core/domain"

// Chunker splits document content into chunks for independent analysis.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// Chunk returns 1-based, ordered chunks covering the document content.
	// When the chunk cap is reached the remaining text is not covered.
	Chunk(doc *domain.Document) []domain.Chunk
}
