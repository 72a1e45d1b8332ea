package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// StructuredRecord is a JSON object recovered from Oracle output.
// Its shape is not trusted; the reconciler maps it onto AnalysisRecord.
type StructuredRecord map[string]any

// Evidence is a quoted passage supporting a finding.
type Evidence struct {
	// Quote is the passage, at most MaxQuoteLength characters.
	Quote string `json:"quote"`

	// Page is the 1-based page of the quote, 0 if unknown.
	Page int `json:"page,omitempty"`
}

// Limits applied to evidence during reconciliation.
const (
	MaxEvidencePerFinding = 2
	MaxQuoteLength        = 240
)

// Finding is the assessment of one category.
type Finding struct {
	Category Category   `json:"category"`
	Status   Status     `json:"status"`
	Evidence []Evidence `json:"evidence"`
}

// Party is a contracting party.
type Party struct {
	Role    string `json:"role"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

// Canonical party roles.
const (
	RoleController = "Verantwortlicher"
	RoleProcessor  = "Auftragsverarbeiter"
)

// Metadata describes the contract itself.
type Metadata struct {
	Title   string  `json:"title"`
	Date    string  `json:"date"`
	Parties []Party `json:"parties"`

	// DataProtectionOfficer is kept apart from the contracting parties.
	DataProtectionOfficer *Party `json:"data_protection_officer,omitempty"`
}

// ActionItem is a recommended change to the contract.
type ActionItem struct {
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// RecordScores holds the final scores of a record.
type RecordScores struct {
	// Compliance is always computed deterministically from the findings.
	Compliance int `json:"compliance"`

	// Risk is RiskOverride when set, otherwise 100 - Compliance.
	Risk int `json:"risk"`

	// RiskOverride is a risk figure supplied by the Oracle itself.
	RiskOverride *int `json:"risk_override,omitempty"`
}

// AnalysisRecord is the canonical result of analysing one contract.
type AnalysisRecord struct {
	Summary  string               `json:"summary"`
	Metadata Metadata             `json:"metadata"`
	Findings map[Category]Finding `json:"findings"`
	Actions  []ActionItem         `json:"actions"`
	Scores   RecordScores         `json:"scores"`
}

// Finding returns the finding for a category, or an unassessed one if absent.
func (r *AnalysisRecord) Finding(c Category) Finding {
	if f, ok := r.Findings[c]; ok {
		return f
	}
	return Finding{Category: c, Evidence: []Evidence{}}
}

// Status returns the status recorded for a category.
func (r *AnalysisRecord) Status(c Category) Status {
	return r.Finding(c).Status
}

// Structured converts the record back into its loosely-typed JSON form.
func (r *AnalysisRecord) Structured() (StructuredRecord, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	var out StructuredRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return out, nil
}

// ScoreBreakdown explains how the compliance score was derived.
type ScoreBreakdown struct {
	// PerCategory holds weight x factor for each core category.
	PerCategory map[Category]float64 `json:"per_category"`

	Base        float64 `json:"base"`
	Bonus       float64 `json:"bonus"`
	Corrections float64 `json:"corrections"`

	// Overall is clamp(round(Base + Bonus - Corrections), 0, 100).
	Overall int `json:"overall"`

	// Risk is the effective risk score.
	Risk int `json:"risk"`

	// RiskOverridden is true when Risk came from the Oracle.
	RiskOverridden bool `json:"risk_overridden"`
}

// RunStats describes one orchestration run.
type RunStats struct {
	ChunksTotal    int           `json:"chunks_total"`
	ChunksAnalyzed int           `json:"chunks_analyzed"`
	ChunksSkipped  int           `json:"chunks_skipped"`
	Truncated      bool          `json:"truncated"`
	OracleCalls    int           `json:"oracle_calls"`
	Retries        int           `json:"retries"`
	Duration       time.Duration `json:"duration_ns"`
}

// AnalysisResult is the outcome of a successful analysis request.
type AnalysisResult struct {
	RequestID string         `json:"request_id"`
	Record    AnalysisRecord `json:"record"`
	Breakdown ScoreBreakdown `json:"breakdown"`
	Stats     RunStats       `json:"stats"`
}

// AnalysisInput is one request: either raw text or document bytes.
type AnalysisInput struct {
	// Text is analysed directly when set.
	Text string

	// Content holds document bytes passed through the text extractor.
	Content []byte

	// MIMEType is a hint for Content; it is sniffed when empty.
	MIMEType string

	// Name is the original file name, used for titles and format hints.
	Name string
}

// Phase is a state of the analysis state machine.
type Phase string

// Analysis phases in order; PhaseFailed is the terminal error state.
const (
	PhaseExtracting  Phase = "extracting_text"
	PhaseChunking    Phase = "chunking"
	PhaseAnalyzing   Phase = "analyzing"
	PhaseMerging     Phase = "merging"
	PhaseParsing     Phase = "extracting"
	PhaseReconciling Phase = "reconciling"
	PhaseScored      Phase = "scored"
	PhaseFailed      Phase = "failed"
)

// String returns the string representation.
func (p Phase) String() string {
	return string(p)
}
