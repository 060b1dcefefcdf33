package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(t *testing.T, cfg CircuitBreakerConfig) (*CircuitBreaker, *fakeClock) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker("binance", cfg, logger)
	cb.now = clock.Now
	cb.lastStateChange = clock.Now()
	return cb, clock
}

var errFetch = errors.New("fetch failed")

func failing(context.Context) error    { return errFetch }
func succeeding(context.Context) error { return nil }

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb, _ := newTestBreaker(t, CircuitBreakerConfig{})
	assert.Equal(t, 3, cb.config.FailureThreshold)
	assert.Equal(t, 1, cb.config.SuccessThreshold)
	assert.Equal(t, time.Minute, cb.config.OpenTimeout)
	assert.Equal(t, Closed, cb.GetState())
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(t, CircuitBreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute})
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, failing), errFetch)
	assert.Equal(t, Closed, cb.GetState())
	assert.ErrorIs(t, cb.Execute(ctx, failing), errFetch)
	assert.Equal(t, Open, cb.GetState())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	stats := cb.GetStats()
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(2), stats.FailedRequests)
	assert.Equal(t, int64(1), stats.RejectedRequests)
	assert.Equal(t, "open", stats.State)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(t, CircuitBreakerConfig{FailureThreshold: 2})
	ctx := context.Background()

	_ = cb.Execute(ctx, failing)
	require.NoError(t, cb.Execute(ctx, succeeding))
	_ = cb.Execute(ctx, failing)
	assert.Equal(t, Closed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker(t, CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, OpenTimeout: 30 * time.Second})
	ctx := context.Background()

	_ = cb.Execute(ctx, failing)
	require.Equal(t, Open, cb.GetState())

	clock.Advance(29 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, succeeding), ErrCircuitOpen)

	clock.Advance(time.Second)
	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, Closed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(t, CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: 10 * time.Second})
	ctx := context.Background()

	_ = cb.Execute(ctx, failing)
	clock.Advance(10 * time.Second)

	assert.ErrorIs(t, cb.Execute(ctx, failing), errFetch)
	assert.Equal(t, Open, cb.GetState())
	assert.ErrorIs(t, cb.Execute(ctx, succeeding), ErrCircuitOpen)
}

func TestCircuitBreaker_CancelledContextNotCounted(t *testing.T) {
	cb, _ := newTestBreaker(t, CircuitBreakerConfig{FailureThreshold: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Closed, cb.GetState())
}

func TestCircuitBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "half-open", HalfOpen.String())
	assert.Equal(t, "unknown", CircuitBreakerState(42).String())
}

func TestCircuitBreakerManager(t *testing.T) {
	logger, _ := test.NewNullLogger()
	m := NewCircuitBreakerManager(CircuitBreakerConfig{FailureThreshold: 1}, logger)

	a := m.GetOrCreate("OKX")
	assert.Same(t, a, m.GetOrCreate("OKX"))
	b := m.GetOrCreate("Gate")

	_ = a.Execute(context.Background(), failing)
	require.NoError(t, b.Execute(context.Background(), succeeding))

	assert.Equal(t, []string{"OKX"}, m.OpenBreakers())
	stats := m.GetAllStats()
	assert.Len(t, stats, 2)
	assert.Equal(t, "open", stats["OKX"].State)
	assert.Equal(t, "closed", stats["Gate"].State)
}
