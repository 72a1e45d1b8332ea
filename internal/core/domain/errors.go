package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInputEmpty indicates the document has no usable text.
	// It is raised before any Oracle call is made.
	ErrInputEmpty = errors.New("input empty")

	// ErrExtractionFailed indicates the text extractor could not read the document.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrUnsupportedFormat indicates no text extractor handles the document type.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrOracleUnavailable indicates no Oracle is configured.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrOracleTransient indicates a rate-limit or overload failure that
	// persisted past the retry ceiling.
	ErrOracleTransient = errors.New("oracle transient failure")

	// ErrOracleFatal indicates a non-retryable Oracle failure.
	ErrOracleFatal = errors.New("oracle fatal failure")

	// ErrMalformedOutput indicates no structured record could be recovered
	// from Oracle output.
	ErrMalformedOutput = errors.New("malformed output")

	// ErrNoUsableResults indicates every chunk analysis was skipped.
	ErrNoUsableResults = errors.New("no usable results")
)

// OracleErrorKind classifies an Oracle failure.
type OracleErrorKind string

// Oracle failure kinds.
const (
	OracleRateLimited OracleErrorKind = "rate_limited"
	OracleOverloaded  OracleErrorKind = "overloaded"
	OracleOther       OracleErrorKind = "other"
)

// OracleError is the tagged failure returned by Oracle adapters.
// The retry loop inspects Retryable instead of the error type.
type OracleError struct {
	Kind       OracleErrorKind
	Retryable  bool
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Err        error
}

// NewOracleError creates an OracleError; rate-limited and overloaded failures are retryable.
func NewOracleError(kind OracleErrorKind, statusCode int, message string) *OracleError {
	return &OracleError{
		Kind:       kind,
		Retryable:  kind == OracleRateLimited || kind == OracleOverloaded,
		StatusCode: statusCode,
		Message:    message,
	}
}

// Error implements the error interface.
func (e *OracleError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("oracle %s (status %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("oracle %s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *OracleError) Unwrap() error {
	return e.Err
}

// Is matches ErrOracleTransient for retryable failures and ErrOracleFatal otherwise.
func (e *OracleError) Is(target error) bool {
	if e.Retryable {
		return target == ErrOracleTransient
	}
	return target == ErrOracleFatal
}

// ClassifyHTTPStatus maps an HTTP status from an Oracle API to a failure kind.
func ClassifyHTTPStatus(code int) OracleErrorKind {
	switch code {
	case http.StatusTooManyRequests:
		return OracleRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, 529:
		return OracleOverloaded
	default:
		return OracleOther
	}
}

// AnalysisError is the classified failure of an analysis request.
type AnalysisError struct {
	// Phase is the state the request failed in.
	Phase Phase

	// Kind is one of the taxonomy sentinels (ErrInputEmpty, ErrOracleFatal, ...).
	Kind error

	// Reason is a human-readable explanation.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

// NewAnalysisError creates an AnalysisError.
func NewAnalysisError(phase Phase, kind error, reason string, err error) *AnalysisError {
	return &AnalysisError{Phase: phase, Kind: kind, Reason: reason, Err: err}
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Phase, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Phase, e.Reason)
}

// Unwrap exposes both the taxonomy kind and the underlying cause to errors.Is/As.
func (e *AnalysisError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindName returns a stable identifier for the failure kind.
func (e *AnalysisError) KindName() string {
	switch e.Kind {
	case ErrInputEmpty:
		return "input_empty"
	case ErrExtractionFailed:
		return "extraction_failed"
	case ErrUnsupportedFormat:
		return "unsupported_format"
	case ErrOracleTransient:
		return "oracle_transient"
	case ErrOracleFatal:
		return "oracle_fatal"
	case ErrOracleUnavailable:
		return "oracle_unavailable"
	case ErrMalformedOutput:
		return "malformed_output"
	case ErrNoUsableResults:
		return "no_usable_results"
	default:
		return "internal"
	}
}
