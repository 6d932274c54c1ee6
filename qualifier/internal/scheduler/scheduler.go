// Package scheduler drives the repeated observe-and-evaluate loop (spec
// §4.F): it owns t_end, t_next, the query counter, and the decision of
// whether to recompute the query rectangle or reuse the last one.
package scheduler

import (
	"context"
	"time"

	"github.com/99souls/ridqualifier/qualifier/errs"
	"github.com/99souls/ridqualifier/qualifier/internal/geometry"
	"github.com/99souls/ridqualifier/qualifier/models"
)

// RectPlanner computes the query rectangle to observe at instant t.
type RectPlanner interface {
	Rect(t time.Time, flights []models.InjectedFlight) (geometry.Rect, error)
}

// InstantEvaluator observes and evaluates every observer at one instant
// against the given rectangle.
type InstantEvaluator interface {
	EvaluateInstant(ctx context.Context, t time.Time, rect geometry.Rect) error
}

// Scheduler runs the polling loop described in spec §4.F.
type Scheduler struct {
	Clock    Clock
	Config   models.EvaluationConfiguration
	RIDVer   models.RIDVersion
	Planner  RectPlanner
	Evaluate InstantEvaluator
}

// NewScheduler returns a Scheduler wired to the production clock.
func NewScheduler(cfg models.EvaluationConfiguration, ridVer models.RIDVersion, planner RectPlanner, evaluate InstantEvaluator) *Scheduler {
	return &Scheduler{Clock: RealClock, Config: cfg, RIDVer: ridVer, Planner: planner, Evaluate: evaluate}
}

// computeTEnd returns the instant after which no injected telemetry could
// still be legitimately visible: the latest telemetry timestamp across all
// flights, plus one realtime period and the max propagation latency.
func computeTEnd(flights []models.InjectedFlight, ridVer models.RIDVersion, cfg models.EvaluationConfiguration) time.Time {
	var tEnd time.Time
	for _, flight := range flights {
		for _, sample := range flight.Flight.Telemetry {
			if sample.Timestamp.After(tEnd) {
				tEnd = sample.Timestamp
			}
		}
	}
	return tEnd.Add(ridVer.RealtimePeriod).Add(cfg.MaxPropagationLatency)
}

// Run executes the polling loop until t_end or ctx cancellation.
//
// Every RepeatQueryRectPeriod-th iteration (by query counter modulo) reuses
// the previous query rectangle instead of recomputing it; the counter
// starts at zero, so that branch is eligible on the very first iteration
// too, but lastRect is still nil then and the planner runs regardless.
// Matches the reuse cadence in original_source's evaluate_system.
func (s *Scheduler) Run(ctx context.Context, flights []models.InjectedFlight) error {
	now := s.Clock.Now()
	tEnd := computeTEnd(flights, s.RIDVer, s.Config)
	if now.After(tEnd) {
		return errs.ErrTestDataExpired
	}

	queryCounter := 0
	var lastRect *geometry.Rect
	tNext := now

	for s.Clock.Now().Before(tEnd) {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		tNow := s.Clock.Now()
		var rect geometry.Rect
		if lastRect != nil && s.Config.RepeatQueryRectPeriod > 0 && queryCounter%s.Config.RepeatQueryRectPeriod == 0 {
			rect = *lastRect
		} else {
			planned, err := s.Planner.Rect(tNow, flights)
			if err != nil {
				return err
			}
			rect = planned
			lastRect = &rect
		}

		if err := s.Evaluate.EvaluateInstant(ctx, tNow, rect); err != nil {
			return err
		}

		for !tNext.After(s.Clock.Now()) {
			tNext = tNext.Add(s.Config.MinPollingInterval)
		}
		if tNext.After(tEnd) {
			break
		}
		delay := tNext.Sub(s.Clock.Now())
		if delay > 0 {
			s.Clock.Sleep(ctx, delay)
		}
		queryCounter++
	}

	return nil
}
