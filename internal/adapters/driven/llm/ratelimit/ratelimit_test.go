package ratelimit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
)

type countingOracle struct {
	calls  atomic.Int32
	err    error
	closed bool
}

func (c *countingOracle) Analyze(_ context.Context, _ driven.OraclePrompt) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return "{}", nil
}

func (c *countingOracle) ModelName() string            { return "fake" }
func (c *countingOracle) Ping(_ context.Context) error { return nil }
func (c *countingOracle) Close() error {
	c.closed = true
	return nil
}

func TestWrap(t *testing.T) {
	inner := &countingOracle{}

	assert.Same(t, driven.Oracle(inner), Wrap(inner, domain.RateLimitSettings{}))
	assert.Nil(t, Wrap(nil, domain.RateLimitSettings{RequestsPerSecond: 1}))

	wrapped := Wrap(inner, domain.RateLimitSettings{RequestsPerSecond: 1, Burst: 1})
	_, ok := wrapped.(*Oracle)
	assert.True(t, ok)
}

func TestOracle_Delegates(t *testing.T) {
	inner := &countingOracle{}
	o := New(inner, domain.RateLimitSettings{RequestsPerSecond: 100, Burst: 5})

	out, err := o.Analyze(context.Background(), driven.OraclePrompt{User: "x"})

	require.NoError(t, err)
	assert.Equal(t, "{}", out)
	assert.Equal(t, "fake", o.ModelName())
	assert.NoError(t, o.Ping(context.Background()))
	assert.NoError(t, o.Close())
	assert.True(t, inner.closed)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestOracle_BurstThenWait(t *testing.T) {
	inner := &countingOracle{}
	o := New(inner, domain.RateLimitSettings{RequestsPerSecond: 0.001, Burst: 2})

	for i := 0; i < 2; i++ {
		_, err := o.Analyze(context.Background(), driven.OraclePrompt{})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := o.Analyze(ctx, driven.OraclePrompt{})

	assert.Error(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestOracle_RateLimitPausesCallers(t *testing.T) {
	inner := &countingOracle{err: &domain.OracleError{
		Kind:       domain.OracleRateLimited,
		Retryable:  true,
		RetryAfter: time.Hour,
	}}
	o := New(inner, domain.RateLimitSettings{RequestsPerSecond: 100, Burst: 10})

	_, err := o.Analyze(context.Background(), driven.OraclePrompt{})
	require.ErrorIs(t, err, domain.ErrOracleTransient)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = o.Analyze(ctx, driven.OraclePrompt{})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestOracle_RecordDefaultsBackoff(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	o := New(&countingOracle{}, domain.RateLimitSettings{RequestsPerSecond: 1})
	o.now = func() time.Time { return base }

	o.record(&domain.OracleError{Kind: domain.OracleRateLimited})
	assert.Equal(t, base.Add(DefaultBackoff), o.retryAt)

	// A shorter hint never shortens an existing pause
	o.record(&domain.OracleError{Kind: domain.OracleRateLimited, RetryAfter: time.Second})
	assert.Equal(t, base.Add(DefaultBackoff), o.retryAt)
}

func TestOracle_RecordIgnoresOtherErrors(t *testing.T) {
	o := New(&countingOracle{}, domain.RateLimitSettings{RequestsPerSecond: 1})

	o.record(errors.New("boom"))
	o.record(&domain.OracleError{Kind: domain.OracleOverloaded})

	assert.True(t, o.retryAt.IsZero())
}
