// Package markdown extracts contract text from Markdown files.
package markdown

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
	"github.com/custodia-labs/dpa-check/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.TextExtractor = (*Normaliser)(nil)

var (
	frontMatterOpen  = []byte("---\n")
	frontMatterClose = []byte("\n---")

	codeFence   = regexp.MustCompile("(?m)^```[^\n]*\n")
	inlineCode  = regexp.MustCompile("`([^`\n]+)`")
	images      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	links       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	headings    = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	emphasis    = regexp.MustCompile(`(\*\*|\*|~~)([^\s*~](?:[^*~\n]*[^\s*~])?)(\*\*|\*|~~)`)
	underscores = regexp.MustCompile(`(^|\W)(__|_)([^\s_](?:[^_\n]*[^\s_])?)(__|_)(\W|$)`)
	blockquote  = regexp.MustCompile(`(?m)^>[ \t]?`)
	rules       = regexp.MustCompile(`(?m)^[ \t]*(?:(?:-[ \t]*){3,}|(?:\*[ \t]*){3,}|(?:_[ \t]*){3,})$`)
	bullets     = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+`)
	comments    = regexp.MustCompile(`(?s)<!--.*?-->`)
	tableRules  = regexp.MustCompile(`(?m)^\|?[ \t]*:?-{3,}:?[ \t]*(\|[ \t]*:?-{3,}:?[ \t]*)*\|?[ \t]*$\n?`)
	tablePipes  = regexp.MustCompile(`[ \t]*\|[ \t]*`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
	headingLine = regexp.MustCompile(`(?m)^#[ \t]+(.+)$`)
)

// Normaliser handles Markdown documents.
type Normaliser struct {
	text *plaintext.Normaliser
}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{text: plaintext.New()}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Extract decodes the file, reads YAML front matter and removes Markdown syntax.
// Numbered list markers are kept because clause numbers carry meaning.
func (n *Normaliser) Extract(ctx context.Context, content []byte) (*domain.Document, error) {
	meta, body := splitFrontMatter(content)

	doc, err := n.text.Extract(ctx, body)
	if err != nil {
		return nil, err
	}

	title := meta.Title
	if title == "" {
		if m := headingLine.FindStringSubmatch(doc.Content); m != nil {
			title = stripMarkdown(m[1])
		}
	}

	doc.Title = title
	doc.Content = stripMarkdown(doc.Content)
	doc.Metadata["format"] = "markdown"
	if meta.Date != "" {
		doc.Metadata["date"] = meta.Date
	}
	return doc, nil
}

// frontMatter holds the fields read from a leading YAML block.
type frontMatter struct {
	Title string `yaml:"title"`
	Date  string `yaml:"date"`
}

// splitFrontMatter separates a leading "---" YAML block from the body.
// Malformed front matter is left in the body untouched.
func splitFrontMatter(content []byte) (frontMatter, []byte) {
	var meta frontMatter

	trimmed := bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})
	trimmed = bytes.ReplaceAll(trimmed, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(trimmed, frontMatterOpen) {
		return meta, content
	}

	// Search from the opener's newline so an empty block closes immediately.
	start := len(frontMatterOpen) - 1
	end := bytes.Index(trimmed[start:], frontMatterClose)
	if end < 0 {
		return meta, content
	}
	end += start

	if err := yaml.Unmarshal(trimmed[len(frontMatterOpen):max(end, len(frontMatterOpen))], &meta); err != nil {
		return frontMatter{}, content
	}

	body := trimmed[end+len(frontMatterClose):]
	return meta, bytes.TrimLeft(body, "\n")
}

// stripMarkdown removes Markdown formatting while keeping the prose.
func stripMarkdown(content string) string {
	content = comments.ReplaceAllString(content, "")
	content = codeFence.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "```", "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = emphasis.ReplaceAllString(content, "$2")
	content = underscores.ReplaceAllString(content, "${1}${3}${5}")
	content = blockquote.ReplaceAllString(content, "")
	content = rules.ReplaceAllString(content, "")
	content = tableRules.ReplaceAllString(content, "")
	content = bullets.ReplaceAllString(content, "$1• ")
	content = tablePipeLines(content)
	content = blankLines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

// tablePipeLines turns "| a | b |" rows into "a  b".
func tablePipeLines(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if len(t) < 2 || t[0] != '|' || t[len(t)-1] != '|' {
			continue
		}
		cells := tablePipes.Split(strings.Trim(t, "|"), -1)
		lines[i] = strings.TrimSpace(strings.Join(cells, "  "))
	}
	return strings.Join(lines, "\n")
}
