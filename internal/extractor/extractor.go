// Package extractor recovers a JSON object from free-form Oracle output.
//
// Oracle answers often wrap the object in a Markdown fence, precede it with
// prose or emit near-valid JSON. Extract tries, in order:
//
//  1. the contents of fenced code blocks
//  2. the first balanced {...} span, found by a string-aware depth scan
//  3. both of the above after structural repairs that leave string
//     literals untouched (trailing commas, stray fences)
//  4. both of the above once more after typographic quotes are normalised
//
// Missing fields are never invented; shape checks belong to the reconciler.
package extractor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

var fencePattern = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\r?\n?(.*?)```")

const fence = "```"

var smartQuotes = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
	"«", `"`, "»", `"`,
	"‘", "'", "’", "'", "‚", "'",
)

// Extract returns the first JSON object recoverable from raw.
// It fails with domain.ErrMalformedOutput if none can be found.
func Extract(raw string) (domain.StructuredRecord, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty output", domain.ErrMalformedOutput)
	}

	if rec, ok := parseAny(raw); ok {
		return rec, nil
	}
	if rec, ok := parseAny(RepairStructure(raw)); ok {
		return rec, nil
	}
	// Typographic quotes inside string values are valid JSON, so they are
	// only rewritten once the structural repairs were not enough.
	if rec, ok := parseAny(Repair(raw)); ok {
		return rec, nil
	}

	return nil, fmt.Errorf("%w: no JSON object found in %d characters of output", domain.ErrMalformedOutput, len(raw))
}

// parseAny tries fenced blocks first, then balanced spans of the whole text.
func parseAny(text string) (domain.StructuredRecord, bool) {
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		block := strings.TrimSpace(m[1])
		if rec, ok := parseObject(block); ok {
			return rec, true
		}
		// Fences sometimes hold prose around the object
		if rec, ok := parseBalanced(block); ok {
			return rec, true
		}
	}
	return parseBalanced(text)
}

// parseBalanced parses the top-level {...} candidates of text in order.
func parseBalanced(text string) (domain.StructuredRecord, bool) {
	for _, candidate := range FindObjects(text) {
		if rec, ok := parseObject(candidate); ok {
			return rec, true
		}
	}
	return nil, false
}

func parseObject(text string) (domain.StructuredRecord, bool) {
	if !strings.HasPrefix(text, "{") {
		return nil, false
	}
	var rec domain.StructuredRecord
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		return nil, false
	}
	if rec == nil {
		return nil, false
	}
	return rec, true
}

// FindObjects scans s for top-level {...} spans.
// Braces inside string literals are ignored, honouring backslash escapes.
//
// Iterating bytes is safe for the ASCII delimiters because UTF-8 never uses
// ASCII bytes inside multi-byte sequences.
func FindObjects(s string) []string {
	var candidates []string
	depth := 0
	start := -1
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}

		if inString {
			switch b {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			// Quotes only open strings inside an object
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}

	return candidates
}

// Repair applies every fix: RepairStructure, then typographic quotes are
// replaced by ASCII quotes everywhere, string values included.
func Repair(s string) string {
	return RepairStructure(smartQuotes.Replace(s))
}

// RepairStructure drops the byte-order mark, trailing commas before a
// closing bracket and stray fence markers. Like FindObjects it tracks string
// literals, and their contents are never changed.
func RepairStructure(s string) string {
	s = strings.ReplaceAll(s, "\uFEFF", "")

	var b strings.Builder
	b.Grow(len(s))
	depth := 0
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escape:
				escape = false
			case c == '\\':
				escape = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}

		switch c {
		case '"':
			// Quotes only open strings inside an object or array
			if depth > 0 {
				inString = true
			}
		case '{', '[':
			depth++
		case '}', ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if next := nextNonSpace(s, i+1); next == '}' || next == ']' {
				continue
			}
		case '`':
			if strings.HasPrefix(s[i:], fence) {
				i += len(fence)
				for i < len(s) && isFenceTag(s[i]) {
					i++
				}
				i--
				continue
			}
		}
		b.WriteByte(c)
	}

	return b.String()
}

// nextNonSpace returns the first non-whitespace byte of s at or after i, or 0.
func nextNonSpace(s string, i int) byte {
	for ; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
		default:
			return s[i]
		}
	}
	return 0
}

func isFenceTag(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}
