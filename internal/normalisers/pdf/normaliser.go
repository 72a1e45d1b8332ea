// Package pdf extracts text from PDF files using poppler's pdftotext.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.TextExtractor = (*Normaliser)(nil)

// toolName is the poppler binary used for extraction.
const toolName = "pdftotext"

// maxTitleLength bounds the first line used as a title.
const maxTitleLength = 200

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

// Normaliser handles PDF documents.
type Normaliser struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

// New creates a PDF normaliser backed by the pdftotext binary.
func New() *Normaliser {
	return &Normaliser{runner: execRunner{}, lookPath: exec.LookPath}
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// CheckAvailable reports whether pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns a hint for installing pdftotext.
func InstallInstructions() string {
	return `PDF support requires pdftotext (poppler):
  macOS:         brew install poppler
  Debian/Ubuntu: apt install poppler-utils
  Fedora:        dnf install poppler-utils`
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Extract converts PDF bytes to text. Form feeds emitted by pdftotext mark
// page ends and become page boundaries.
func (n *Normaliser) Extract(ctx context.Context, content []byte) (*domain.Document, error) {
	if n.lookPath != nil {
		if _, err := n.lookPath(toolName); err != nil {
			return nil, fmt.Errorf("%w: %w\n%s", domain.ErrExtractionFailed, ErrPDFToolNotFound, InstallInstructions())
		}
	}

	tmp, err := os.CreateTemp("", "dpa-check-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	out, err := n.runner.Run(ctx, toolName, "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: pdftotext failed: %w", domain.ErrExtractionFailed, err)
	}
	if !utf8.Valid(out) {
		out = []byte(strings.ToValidUTF8(string(out), "�"))
	}

	text, offsets := splitPages(string(out))
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: PDF has no text layer (scanned document?)", domain.ErrExtractionFailed)
	}

	return &domain.Document{
		Title:       extractTitle(text),
		Content:     text,
		PageOffsets: offsets,
		Metadata: map[string]any{
			"format": "pdf",
			"pages":  len(offsets) + 1,
		},
	}, nil
}

// splitPages replaces form feeds with newlines and records where each
// following page starts. Trailing form feeds close the last page and add
// no boundary.
func splitPages(out string) (string, []int) {
	out = strings.TrimRight(out, "\f\n")

	var offsets []int
	for i := 0; i < len(out); i++ {
		if out[i] == '\f' {
			offsets = append(offsets, i+1)
		}
	}
	return strings.ReplaceAll(out, "\f", "\n"), offsets
}

// extractTitle returns the first non-empty line of reasonable length.
func extractTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > maxTitleLength {
			continue
		}
		return line
	}
	return ""
}
