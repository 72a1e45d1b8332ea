package domain

import (
	"fmt"
	"sort"
	"time"
)

// Document is the text of a contract after extraction.
// It is read once per analysis request and never mutated.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the original location (file path, upload name), if any.
	URI string

	// Title is a best-effort human-readable title.
	Title string

	// MIMEType is the detected type of the source bytes.
	MIMEType string

	// Content is the full extracted text in reading order.
	Content string

	// PageOffsets holds the byte offsets into Content where pages 2..N start.
	// Empty when the source format has no page concept.
	PageOffsets []int

	// Metadata contains extractor-specific key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was extracted.
	CreatedAt time.Time
}

// PageCount returns the number of pages, or 0 if the document has no page information.
func (d *Document) PageCount() int {
	if len(d.PageOffsets) == 0 {
		return 0
	}
	return len(d.PageOffsets) + 1
}

// PageAt returns the 1-based page containing the byte offset.
// Returns 0 if the document has no page information.
func (d *Document) PageAt(offset int) int {
	if len(d.PageOffsets) == 0 {
		return 0
	}
	// Number of page starts at or before offset, plus the first page.
	return sort.SearchInts(d.PageOffsets, offset+1) + 1
}

// Chunk is an ordered slice of a Document analysed by one Oracle call.
type Chunk struct {
	// Index is the 1-based position of the chunk.
	Index int

	// Total is the number of chunks produced for the document.
	Total int

	// Content is the chunk text.
	Content string

	// Offset is the byte offset of Content within the document text.
	Offset int

	// Tokens is the estimated token size of Content.
	Tokens int

	// FirstPage and LastPage bound the pages covered by the chunk (0 if unknown).
	FirstPage int
	LastPage  int
}

// End returns the byte offset just past the chunk within the document text.
func (c Chunk) End() int {
	return c.Offset + len(c.Content)
}

// PageRange returns a human-readable page range, or an empty string if unknown.
func (c Chunk) PageRange() string {
	switch {
	case c.FirstPage == 0:
		return ""
	case c.FirstPage == c.LastPage:
		return fmt.Sprintf("%d", c.FirstPage)
	default:
		return fmt.Sprintf("%d-%d", c.FirstPage, c.LastPage)
	}
}
