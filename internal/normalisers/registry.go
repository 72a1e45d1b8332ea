package normalisers

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
	"github.com/custodia-labs/dpa-check/internal/logger"
	"github.com/custodia-labs/dpa-check/internal/normalisers/docx"
	"github.com/custodia-labs/dpa-check/internal/normalisers/eml"
	"github.com/custodia-labs/dpa-check/internal/normalisers/html"
	"github.com/custodia-labs/dpa-check/internal/normalisers/markdown"
	"github.com/custodia-labs/dpa-check/internal/normalisers/pdf"
	"github.com/custodia-labs/dpa-check/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// extensionTypes covers extensions the system MIME table may not know.
var extensionTypes = map[string]string{
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".eml":      "message/rfc822",
}

// Registry maps MIME types to text extractors.
type Registry struct {
	extractors map[string]driven.TextExtractor
	now        func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]driven.TextExtractor),
		now:        time.Now,
	}
}

// Default returns a registry with every built-in extractor.
func Default() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(pdf.New())
	r.Register(eml.New(r))
	return r
}

// Register adds an extractor for each of its MIME types.
// A later registration replaces an earlier one for the same type.
func (r *Registry) Register(extractor driven.TextExtractor) {
	for _, mt := range extractor.SupportedMIMETypes() {
		r.extractors[mt] = extractor
	}
}

// SupportedMIMETypes returns all MIME types that can be extracted, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	types := lo.Keys(r.extractors)
	sort.Strings(types)
	return types
}

// Extract detects the content type and runs the matching extractor.
// The sniffed type wins, then the caller's hint, then the file extension,
// then the sniffed type's more generic parents (e.g. text/plain). Sniffed
// plain text is refined by a declared text/* or message/* type such as
// text/markdown.
func (r *Registry) Extract(ctx context.Context, content []byte, mimeHint, name string) (*domain.Document, error) {
	sniffed := mimetype.Detect(content)
	mimeType, extractor := r.resolve(sniffed, mimeHint, name)
	if extractor == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, describe(sniffed, mimeHint, name))
	}

	logger.Debug("Extracting %s as %s", lo.Ternary(name != "", name, "upload"), mimeType)
	doc, err := extractor.Extract(ctx, content)
	if err != nil {
		if errors.Is(err, domain.ErrExtractionFailed) || errors.Is(err, domain.ErrUnsupportedFormat) ||
			ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}

	doc.ID = uuid.New().String()
	doc.URI = name
	doc.MIMEType = mimeType
	doc.CreatedAt = r.now()
	if doc.Title == "" {
		doc.Title = TitleFromName(name)
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata["mime_type"] = mimeType
	doc.Metadata["size_bytes"] = len(content)
	return doc, nil
}

// resolve picks the first candidate type with a registered extractor.
func (r *Registry) resolve(sniffed *mimetype.MIME, mimeHint, name string) (string, driven.TextExtractor) {
	sniffedType := baseType(sniffed.String())
	candidates := []string{sniffedType, baseType(mimeHint), typeByExtension(name)}
	if sniffedType == "text/plain" {
		refined := lo.Filter(candidates[1:], func(mt string, _ int) bool {
			return strings.HasPrefix(mt, "text/") || strings.HasPrefix(mt, "message/")
		})
		candidates = append(refined, candidates...)
	}
	for m := sniffed.Parent(); m != nil; m = m.Parent() {
		candidates = append(candidates, baseType(m.String()))
	}

	for _, mt := range lo.Uniq(lo.Compact(candidates)) {
		if extractor, ok := r.extractors[mt]; ok {
			return mt, extractor
		}
	}
	return "", nil
}

// baseType strips parameters such as charset.
func baseType(mt string) string {
	if mt == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(mt)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(mt, ";")[0]))
	}
	return parsed
}

func typeByExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if mt, ok := extensionTypes[ext]; ok {
		return mt
	}
	return baseType(mime.TypeByExtension(ext))
}

func describe(sniffed *mimetype.MIME, mimeHint, name string) string {
	parts := []string{"detected " + baseType(sniffed.String())}
	if mimeHint != "" {
		parts = append(parts, "declared "+mimeHint)
	}
	if name != "" {
		parts = append(parts, "file "+filepath.Base(name))
	}
	return strings.Join(parts, ", ")
}

// TitleFromName derives a human-readable title from a file name.
func TitleFromName(name string) string {
	if name == "" {
		return ""
	}
	filename := filepath.Base(name)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	return strings.NewReplacer("_", " ", "-", " ").Replace(filename)
}
