// Package resilience throttles and circuit-breaks outbound calls to a USS
// injection endpoint or observer, one limiter state per remote host. It is
// pure ambient resilience (spec §4.I of SPEC_FULL.md): it never changes the
// §4.D status-code classification or the §4.G finding logic, only how
// promptly — or whether — a call is attempted.
//
// Adapted from the teacher engine's adaptive per-domain rate limiter
// (models.RateLimitConfig's AIMD token bucket plus consecutive-failure
// circuit breaker), repurposed from per-crawl-domain throttling to
// per-USS/per-observer throttling.
package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config tunes the limiter. Field meanings mirror models.RateLimitConfig.
type Config struct {
	InitialRPS               float64
	MinRPS                   float64
	MaxRPS                   float64
	AIMDIncrease             float64
	AIMDDecrease             float64
	LatencyTarget            time.Duration
	LatencyDegradeFactor     float64
	ConsecutiveFailThreshold int
	OpenStateDuration        time.Duration
	HalfOpenProbes           int
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() Config {
	return Config{
		InitialRPS:               2.0,
		MinRPS:                   0.25,
		MaxRPS:                   8.0,
		AIMDIncrease:             0.25,
		AIMDDecrease:             0.5,
		LatencyTarget:            time.Second,
		LatencyDegradeFactor:     2.0,
		ConsecutiveFailThreshold: 5,
		OpenStateDuration:        15 * time.Second,
		HalfOpenProbes:           3,
	}
}

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

// ErrCircuitOpen is returned by Acquire when the host's circuit breaker is
// open and not yet eligible for a half-open probe.
var ErrCircuitOpen = fmt.Errorf("resilience: circuit open")

type hostState struct {
	mu sync.Mutex

	rps              float64
	consecutiveFails int
	state            circuitState
	openedAt         time.Time
	halfOpenProbes   int
}

// Limiter holds one hostState per normalized remote host.
type Limiter struct {
	cfg   Config
	clock Clock

	mu    sync.Mutex
	hosts map[string]*hostState
}

// NewLimiter returns a Limiter. A nil clock uses the real wall clock.
func NewLimiter(cfg Config, clock Clock) *Limiter {
	if clock == nil {
		clock = realClock{}
	}
	return &Limiter{cfg: cfg, clock: clock, hosts: make(map[string]*hostState)}
}

func (l *Limiter) state(rawHost string) (*hostState, error) {
	host, err := normalizeHost(rawHost)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	hs, ok := l.hosts[host]
	if !ok {
		hs = &hostState{rps: l.cfg.InitialRPS}
		l.hosts[host] = hs
	}
	return hs, nil
}

// Outcome reports how a permitted call went, fed back via the func Acquire returns.
type Outcome struct {
	Err     error
	Latency time.Duration
}

// Acquire blocks (respecting ctx) for the host's current inter-request
// interval, or returns ErrCircuitOpen immediately if the breaker is open.
// The caller must invoke the returned release func exactly once with the
// call's outcome.
func (l *Limiter) Acquire(ctx context.Context, rawHost string) (release func(Outcome), err error) {
	hs, err := l.state(rawHost)
	if err != nil {
		return nil, err
	}

	hs.mu.Lock()
	now := l.clock.Now()
	switch hs.state {
	case circuitOpen:
		if now.Sub(hs.openedAt) < l.cfg.OpenStateDuration {
			hs.mu.Unlock()
			return nil, ErrCircuitOpen
		}
		hs.state = circuitHalfOpen
		hs.halfOpenProbes = 1
	case circuitHalfOpen:
		if hs.halfOpenProbes >= l.cfg.HalfOpenProbes {
			hs.mu.Unlock()
			return nil, ErrCircuitOpen
		}
		hs.halfOpenProbes++
	}
	interval := time.Duration(float64(time.Second) / hs.rps)
	hs.mu.Unlock()

	select {
	case <-time.After(interval):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return func(outcome Outcome) { l.record(hs, outcome) }, nil
}

func (l *Limiter) record(hs *hostState, outcome Outcome) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	degraded := outcome.Latency > time.Duration(float64(l.cfg.LatencyTarget)*l.cfg.LatencyDegradeFactor)
	if outcome.Err != nil || degraded {
		hs.consecutiveFails++
		hs.rps = clampFloat(hs.rps*l.cfg.AIMDDecrease, l.cfg.MinRPS, l.cfg.MaxRPS)
		if hs.state == circuitHalfOpen || hs.consecutiveFails >= l.cfg.ConsecutiveFailThreshold {
			hs.state = circuitOpen
			hs.openedAt = l.clock.Now()
		}
		return
	}

	hs.consecutiveFails = 0
	hs.rps = clampFloat(hs.rps+l.cfg.AIMDIncrease, l.cfg.MinRPS, l.cfg.MaxRPS)
	if hs.state == circuitHalfOpen {
		hs.state = circuitClosed
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
