package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }
func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func TestLimiter_AcquireSucceedsAndIncreasesRPS(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cfg := DefaultConfig()
	cfg.InitialRPS = 1000 // avoid real sleeps in the test
	cfg.MaxRPS = 2000
	lim := NewLimiter(cfg, clock)

	release, err := lim.Acquire(context.Background(), "https://uss.example.com/v1")
	require.NoError(t, err)

	hs, err := lim.state("uss.example.com")
	require.NoError(t, err)
	before := hs.rps

	release(Outcome{Latency: 10 * time.Millisecond})
	require.Greater(t, hs.rps, before-1e-9)
}

func TestLimiter_OpensCircuitAfterConsecutiveFailures(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cfg := DefaultConfig()
	cfg.InitialRPS = 1000
	cfg.ConsecutiveFailThreshold = 3
	lim := NewLimiter(cfg, clock)

	for i := 0; i < 3; i++ {
		release, err := lim.Acquire(context.Background(), "uss.example.com")
		require.NoError(t, err)
		release(Outcome{Err: context.DeadlineExceeded})
	}

	_, err := lim.Acquire(context.Background(), "uss.example.com")
	require.ErrorIs(t, err, ErrCircuitOpen)
}

func TestLimiter_HalfOpenAfterOpenStateDurationElapses(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cfg := DefaultConfig()
	cfg.InitialRPS = 1000
	cfg.ConsecutiveFailThreshold = 1
	cfg.OpenStateDuration = time.Second
	cfg.HalfOpenProbes = 1
	lim := NewLimiter(cfg, clock)

	release, err := lim.Acquire(context.Background(), "uss.example.com")
	require.NoError(t, err)
	release(Outcome{Err: context.DeadlineExceeded})

	_, err = lim.Acquire(context.Background(), "uss.example.com")
	require.ErrorIs(t, err, ErrCircuitOpen)

	clock.advance(2 * time.Second)

	release, err = lim.Acquire(context.Background(), "uss.example.com")
	require.NoError(t, err)
	release(Outcome{})

	hs, err := lim.state("uss.example.com")
	require.NoError(t, err)
	require.Equal(t, circuitClosed, hs.state)
}

func TestLimiter_AcquireRespectsContextCancellation(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cfg := DefaultConfig()
	cfg.InitialRPS = 0.01 // ~100s interval, long enough to reliably hit ctx cancellation
	lim := NewLimiter(cfg, clock)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := lim.Acquire(ctx, "uss.example.com")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiter_RejectsInvalidHost(t *testing.T) {
	lim := NewLimiter(DefaultConfig(), nil)
	_, err := lim.Acquire(context.Background(), "   ")
	require.Error(t, err)
}
