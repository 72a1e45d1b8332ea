package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/logger"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// sleepContext is the production Sleeper.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy retries Oracle calls with exponential backoff.
// Only failures tagged retryable by the adapter are retried.
type RetryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	sleep      Sleeper
}

// NewRetryPolicy creates a policy from settings.
func NewRetryPolicy(settings domain.RetrySettings) *RetryPolicy {
	defaults := domain.DefaultAppSettings().Retry

	p := &RetryPolicy{
		maxRetries: settings.MaxRetries,
		baseDelay:  settings.BaseDelay,
		maxDelay:   settings.MaxDelay,
		sleep:      sleepContext,
	}
	if p.maxRetries < 0 {
		p.maxRetries = 0
	}
	if p.baseDelay <= 0 {
		p.baseDelay = defaults.BaseDelay
	}
	// Every retry waits longer than the one before
	floor := domain.RetrySettings{MaxRetries: p.maxRetries, BaseDelay: p.baseDelay}.UncappedDelay()
	if p.maxDelay < max(p.baseDelay, floor) {
		p.maxDelay = max(p.baseDelay, floor)
	}
	return p
}

// WithSleeper replaces the wait function, used by tests to avoid real delays.
func (p *RetryPolicy) WithSleeper(sleep Sleeper) *RetryPolicy {
	cp := *p
	cp.sleep = sleep
	return &cp
}

// MaxRetries returns the retry ceiling.
func (p *RetryPolicy) MaxRetries() int {
	return p.maxRetries
}

// Delay returns the wait before retry number attempt (0-based): base * 2^attempt, capped.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	d := p.baseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.maxDelay {
			return p.maxDelay
		}
	}
	return d
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// retry ceiling is reached. It returns the number of retries performed.
func (p *RetryPolicy) Do(ctx context.Context, operation string, fn func(context.Context) (string, error)) (string, int, error) {
	retries := 0
	for {
		if err := ctx.Err(); err != nil {
			return "", retries, err
		}

		out, err := fn(ctx)
		if err == nil {
			if retries > 0 {
				logger.Debug("%s succeeded after %d retries", operation, retries)
			}
			return out, retries, nil
		}

		var oracleErr *domain.OracleError
		if !errors.As(err, &oracleErr) || !oracleErr.Retryable {
			return "", retries, err
		}
		if retries >= p.maxRetries {
			logger.Warn("%s: giving up after %d retries: %v", operation, retries, err)
			return "", retries, err
		}

		delay := p.Delay(retries)
		logger.Warn("%s: %v, retrying in %v", operation, err, delay)
		if err := p.sleep(ctx, delay); err != nil {
			return "", retries, err
		}
		retries++
	}
}
