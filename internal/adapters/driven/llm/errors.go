// Package llm holds helpers shared by the Oracle adapters.
// Each provider lives in its own subpackage.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

// maxErrorBody bounds how much of an error response ends up in messages.
const maxErrorBody = 512

// APIError classifies a non-200 response from a provider API.
// apiType and apiMessage come from the provider's error envelope, if one was decoded.
func APIError(provider string, resp *http.Response, body []byte, apiType, apiMessage string) *domain.OracleError {
	msg := apiMessage
	if msg == "" {
		msg = truncate(strings.TrimSpace(string(body)), maxErrorBody)
	}

	e := StatusError(provider, resp.StatusCode, apiType, msg)
	e.RetryAfter = RetryAfter(resp.Header.Get("Retry-After"))
	return e
}

// StatusError classifies a failure from its HTTP status, then from the provider's error type.
func StatusError(provider string, status int, apiType, message string) *domain.OracleError {
	kind := domain.ClassifyHTTPStatus(status)
	if kind == domain.OracleOther {
		kind = classifyType(apiType)
	}
	if apiType != "" {
		message = apiType + ": " + message
	}
	return domain.NewOracleError(kind, status, provider+": "+message)
}

// TransportError wraps a failure to reach the provider.
// Context cancellation is returned unchanged so callers can detect it.
func TransportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	e := domain.NewOracleError(domain.OracleOther, 0, fmt.Sprintf("%s: send request", provider))
	e.Err = err
	return e
}

// InvalidResponse reports a 200 response the adapter could not use.
func InvalidResponse(provider, format string, args ...any) *domain.OracleError {
	return domain.NewOracleError(domain.OracleOther, http.StatusOK, provider+": "+fmt.Sprintf(format, args...))
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP date.
func RetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// classifyType maps provider error types such as "overloaded_error" or
// "rate_limit_exceeded" to a failure kind.
func classifyType(apiType string) domain.OracleErrorKind {
	t := strings.ToLower(apiType)
	switch {
	case strings.Contains(t, "overloaded"), strings.Contains(t, "unavailable"):
		return domain.OracleOverloaded
	case strings.Contains(t, "rate_limit"), strings.Contains(t, "resource_exhausted"):
		return domain.OracleRateLimited
	default:
		return domain.OracleOther
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
