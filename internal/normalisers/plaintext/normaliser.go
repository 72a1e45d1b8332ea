// Package plaintext extracts text from plain text files.
package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.TextExtractor = (*Normaliser)(nil)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/plain"}
}

// Extract decodes UTF-8 text and normalises line endings.
func (n *Normaliser) Extract(_ context.Context, content []byte) (*domain.Document, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", domain.ErrExtractionFailed)
	}

	text := strings.ReplaceAll(string(content), "\r\n", "\n")

	return &domain.Document{
		Title:   extractTitle(text),
		Content: text,
		Metadata: map[string]any{
			"format": "text",
		},
	}, nil
}

// extractTitle returns the first "# " heading in the opening lines, if any.
func extractTitle(text string) string {
	for _, line := range strings.SplitN(text, "\n", 20) {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}
