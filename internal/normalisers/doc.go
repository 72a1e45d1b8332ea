// Package normalisers turns uploaded contract files into plain text.
//
// Each sub-package handles one family of MIME types and implements
// driven.TextExtractor. The Registry sniffs the content type of incoming
// bytes and dispatches to the matching extractor.
package normalisers
