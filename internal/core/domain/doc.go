// Package domain defines the core business entities for dpa-check.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Extracted contract text with optional page boundaries
//   - Chunk: A bounded, ordered slice of a Document sent to the Oracle
//   - Category: One of the eleven canonical checklist items
//   - AnalysisRecord: The canonical, reconciled analysis of one contract
//   - ScoreBreakdown: The deterministic compliance score derivation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
