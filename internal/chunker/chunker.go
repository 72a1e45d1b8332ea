// Package chunker splits contract text into token-bounded chunks.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
)

// Verify interface compliance at compile time.
var _ driven.Chunker = (*Chunker)(nil)

// CharsPerToken is the character-to-token ratio used for size estimates.
const CharsPerToken = 4

// DefaultTargetTokens is the preferred chunk size.
const DefaultTargetTokens = 6000

// DefaultHardMaxTokens is the ceiling no chunk may exceed.
const DefaultHardMaxTokens = 8000

// DefaultMaxChunks caps the number of chunks per document.
const DefaultMaxChunks = 12

// separators are tried in order when a unit is too large.
// Each separator stays attached to the text before it, so splitting never drops characters.
var separators = []string{"\n\n", "\n", ". ", " "}

// Chunker splits document content at structural boundaries.
type Chunker struct {
	targetTokens  int
	hardMaxTokens int
	maxChunks     int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithTargetTokens sets the preferred chunk size in tokens.
func WithTargetTokens(tokens int) Option {
	return func(c *Chunker) {
		if tokens > 0 {
			c.targetTokens = tokens
		}
	}
}

// WithHardMaxTokens sets the chunk size ceiling in tokens.
func WithHardMaxTokens(tokens int) Option {
	return func(c *Chunker) {
		if tokens > 0 {
			c.hardMaxTokens = tokens
		}
	}
}

// WithMaxChunks caps the number of chunks; remaining text is truncated.
func WithMaxChunks(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChunks = n
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		targetTokens:  DefaultTargetTokens,
		hardMaxTokens: DefaultHardMaxTokens,
		maxChunks:     DefaultMaxChunks,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Target never exceeds the ceiling
	if c.targetTokens > c.hardMaxTokens {
		c.targetTokens = c.hardMaxTokens
	}

	return c
}

// Name returns the chunker name.
func (c *Chunker) Name() string {
	return "chunker"
}

// Chunk splits the document content and annotates chunks with page ranges.
func (c *Chunker) Chunk(doc *domain.Document) []domain.Chunk {
	chunks := Split(doc.Content, c.targetTokens, c.hardMaxTokens, c.maxChunks)
	for i := range chunks {
		chunks[i].FirstPage = doc.PageAt(chunks[i].Offset)
		chunks[i].LastPage = doc.PageAt(chunks[i].End() - 1)
	}
	return chunks
}

// EstimateTokens returns ceil(chars/4) for the text.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + CharsPerToken - 1) / CharsPerToken
}

// Split is the pure chunking function.
//
// The text is first cut at every paragraph break. Paragraphs larger than
// hardMaxTokens are cut further into the fewest units that fit, preferring
// line, then sentence and word boundaries. Units are then packed greedily
// until the next one would push the chunk past targetTokens, so a chunk only
// exceeds targetTokens when it holds a single unit.
// A single word longer than the ceiling is cut by character count.
// At most maxChunks chunks are returned; the rest of the text is dropped.
func Split(text string, targetTokens, hardMaxTokens, maxChunks int) []domain.Chunk {
	if text == "" {
		return nil
	}
	if hardMaxTokens <= 0 {
		hardMaxTokens = DefaultHardMaxTokens
	}
	if targetTokens <= 0 || targetTokens > hardMaxTokens {
		targetTokens = hardMaxTokens
	}
	if maxChunks <= 0 {
		maxChunks = 1
	}

	targetRunes := targetTokens * CharsPerToken
	units := paragraphs(text, hardMaxTokens*CharsPerToken)

	chunks := make([]domain.Chunk, 0, min(maxChunks, len(units)))
	var buf strings.Builder
	bufRunes := 0
	offset := 0

	flush := func() {
		content := buf.String()
		chunks = append(chunks, domain.Chunk{
			Index:   len(chunks) + 1,
			Content: content,
			Offset:  offset,
			Tokens:  EstimateTokens(content),
		})
		offset += len(content)
		buf.Reset()
		bufRunes = 0
	}

	for _, unit := range units {
		n := utf8.RuneCountInString(unit)
		if bufRunes > 0 && bufRunes+n > targetRunes {
			flush()
			if len(chunks) == maxChunks {
				break
			}
		}
		buf.WriteString(unit)
		bufRunes += n
	}
	if bufRunes > 0 && len(chunks) < maxChunks {
		flush()
	}

	for i := range chunks {
		chunks[i].Total = len(chunks)
	}
	return chunks
}

// paragraphs splits text at every paragraph break, then splits any
// paragraph that does not fit maxRunes.
func paragraphs(text string, maxRunes int) []string {
	var units []string
	for _, part := range strings.SplitAfter(text, separators[0]) {
		if part == "" {
			continue
		}
		units = append(units, splitUnits(part, maxRunes, 1)...)
	}
	return units
}

// splitUnits recursively splits text at the separator for level until every
// unit fits maxRunes.
func splitUnits(text string, maxRunes, level int) []string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return []string{text}
	}
	if level >= len(separators) {
		return hardSplit(text, maxRunes)
	}

	parts := strings.SplitAfter(text, separators[level])
	units := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		units = append(units, splitUnits(part, maxRunes, level+1)...)
	}
	return units
}

// hardSplit cuts text every maxRunes runes.
func hardSplit(text string, maxRunes int) []string {
	var parts []string
	for text != "" {
		end := 0
		for i := 0; i < maxRunes && end < len(text); i++ {
			_, size := utf8.DecodeRuneInString(text[end:])
			end += size
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
