// Package ratelimit throttles Oracle calls with a token bucket.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
	"github.com/custodia-labs/dpa-check/internal/logger"
)

// Ensure Oracle implements the interface.
var _ driven.Oracle = (*Oracle)(nil)

// DefaultBackoff is used when a rate-limited provider gives no Retry-After hint.
const DefaultBackoff = 5 * time.Second

// Oracle wraps another Oracle and waits for a token before each Analyze call.
// A rate-limit answer carrying Retry-After pauses all callers until it passes.
type Oracle struct {
	next    driven.Oracle
	limiter *rate.Limiter

	mu      sync.Mutex
	retryAt time.Time
	now     func() time.Time
}

// Wrap returns next throttled to the given settings.
// A zero rate returns next unchanged.
func Wrap(next driven.Oracle, cfg domain.RateLimitSettings) driven.Oracle {
	if next == nil || cfg.RequestsPerSecond <= 0 {
		return next
	}
	return New(next, cfg)
}

// New creates a throttled Oracle.
func New(next driven.Oracle, cfg domain.RateLimitSettings) *Oracle {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &Oracle{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		now:     time.Now,
	}
}

// Wait blocks until a request may be sent.
func (o *Oracle) Wait(ctx context.Context) error {
	o.mu.Lock()
	retryAt := o.retryAt
	o.mu.Unlock()

	if wait := retryAt.Sub(o.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return o.limiter.Wait(ctx)
}

// Analyze waits for a token then delegates.
func (o *Oracle) Analyze(ctx context.Context, prompt driven.OraclePrompt) (string, error) {
	if err := o.Wait(ctx); err != nil {
		return "", err
	}

	out, err := o.next.Analyze(ctx, prompt)
	if err != nil {
		o.record(err)
	}
	return out, err
}

// record pauses callers after a rate-limit answer.
func (o *Oracle) record(err error) {
	var oe *domain.OracleError
	if !errors.As(err, &oe) || oe.Kind != domain.OracleRateLimited {
		return
	}

	backoff := oe.RetryAfter
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	until := o.now().Add(backoff)
	if until.After(o.retryAt) {
		o.retryAt = until
		logger.Warn("%s rate limited, pausing requests for %s", o.next.ModelName(), backoff)
	}
}

// ModelName returns the wrapped model name.
func (o *Oracle) ModelName() string {
	return o.next.ModelName()
}

// Ping delegates without consuming a token.
func (o *Oracle) Ping(ctx context.Context) error {
	return o.next.Ping(ctx)
}

// Close closes the wrapped Oracle.
func (o *Oracle) Close() error {
	return o.next.Close()
}
