// Package evaluate classifies observations of injected test flights against
// the RID temporal-visibility model (spec §4.G): premature, lingering,
// missing, or duplicate. It is grounded directly on
// RIDObservationEvaluator._evaluate_observation and its helpers in
// original_source's display_data_evaluator.py, kept in the same branch
// order and boundary conditions.
package evaluate

import (
	"context"
	"fmt"
	"time"

	"github.com/99souls/ridqualifier/qualifier/findings"
	"github.com/99souls/ridqualifier/qualifier/internal/geometry"
	"github.com/99souls/ridqualifier/qualifier/internal/observer"
	"github.com/99souls/ridqualifier/qualifier/models"
)

// NamedObserver pairs an Observer Adapter with the display name findings are
// recorded under.
type NamedObserver struct {
	Name    string
	Adapter *observer.Adapter
}

// Evaluator observes every configured observer at each scheduler instant and
// classifies what each reports against the injected ground truth.
type Evaluator struct {
	Findings       findings.Sink
	InjectedFlight []models.InjectedFlight
	Observers      []NamedObserver
	RIDVer         models.RIDVersion
	Config         models.EvaluationConfiguration
}

// NewEvaluator returns an Evaluator.
func NewEvaluator(sink findings.Sink, injected []models.InjectedFlight, observers []NamedObserver, ridVer models.RIDVersion, cfg models.EvaluationConfiguration) *Evaluator {
	return &Evaluator{Findings: sink, InjectedFlight: injected, Observers: observers, RIDVer: ridVer, Config: cfg}
}

// EvaluateInstant observes every observer at rect and evaluates each
// response, mirroring _evaluate_system_instantaneously. Satisfies
// scheduler.InstantEvaluator.
func (e *Evaluator) EvaluateInstant(ctx context.Context, t time.Time, rect geometry.Rect) error {
	for _, obs := range e.Observers {
		observation, err := obs.Adapter.ObserveSystem(ctx, t, rect)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("ridqualifier: observation by %s failed: %w", obs.Name, err)
			}
			// A throttled or failed request is an absent observation.
			e.Findings.AddObservationQuery(observation.Query)
			e.Findings.AddObservationFailure(obs.Name, observation.Query)
			continue
		}
		e.Findings.AddObservationQuery(observation.Query)
		e.evaluateObservation(obs.Name, rect, observation)

		// TODO: if rect is smaller than the cluster threshold, expand and re-observe
		// TODO: if rect is smaller than the area-too-large threshold, expand and re-observe
	}
	return nil
}

// evaluateObservation routes to the area-too-large, cluster, or normal
// evaluation path by the query rectangle's diagonal, mirroring
// _evaluate_observation.
func (e *Evaluator) evaluateObservation(observerName string, rect geometry.Rect, observation observer.Observation) {
	diagonalMeters := geometry.DiagonalMeters(rect, geometry.DefaultDistance)
	diagonalKm := diagonalMeters / 1000

	switch {
	case diagonalKm > e.RIDVer.MaxDiagonalKm:
		e.evaluateAreaTooLarge(observerName, diagonalMeters, observation)
	case diagonalKm > e.RIDVer.MaxDetailsDiagonalKm:
		e.evaluateClusters()
	default:
		e.evaluateNormal(observerName, observation)
	}
}

// evaluateAreaTooLarge mirrors _evaluate_area_to_large_observation: a
// rectangle exceeding the display provider's maximum diagonal must be
// rejected with 413; anything else is a finding.
func (e *Evaluator) evaluateAreaTooLarge(observerName string, diagonalMeters float64, observation observer.Observation) {
	if observation.Query.Response.StatusCode != 413 {
		e.Findings.AddAreaTooLargeNotIndicated(observerName, diagonalMeters, observation.Query)
	}
}

// evaluateClusters is the deliberately deferred cluster-mode check
// (original_source's _evaluate_clusters_observation is itself a no-op with
// the same TODO).
func (e *Evaluator) evaluateClusters() {
	// TODO: check cluster sizing, aircraft counts, etc.
}

// evaluateNormal mirrors _evaluate_normal_observation exactly: an absent
// observation is a finding and nothing else is checked; otherwise every
// injected flight is classified in turn.
func (e *Evaluator) evaluateNormal(observerName string, observation observer.Observation) {
	if observation.Response == nil {
		e.Findings.AddObservationFailure(observerName, observation.Query)
		return
	}

	for _, expected := range e.InjectedFlight {
		e.evaluateExpectedFlight(observerName, expected, observation)
	}
}

// evaluateExpectedFlight mirrors the per-expected-flight body of
// _evaluate_normal_observation, including its exact branch order: duplicate
// detection runs unconditionally, then premature/lingering/missing are
// evaluated as mutually exclusive cases in a single if/elif/elif chain.
func (e *Evaluator) evaluateExpectedFlight(observerName string, expected models.InjectedFlight, observation observer.Observation) {
	tInitiated := observation.Query.Request.Timestamp
	tResponse := observation.Query.Response.ReportedTimestamp

	tMin, tMax := telemetryBounds(expected.Flight.Telemetry)

	flightID := ""
	if len(expected.Flight.DetailsResponses) > 0 {
		// TODO: choose the appropriate details entry rather than always the first.
		flightID = expected.Flight.DetailsResponses[0].Details.ID
	}

	var matching []models.ObservedFlight
	for _, observed := range observation.Response.Flights {
		if observed.ID == flightID {
			matching = append(matching, observed)
		}
	}

	if len(matching) > 1 {
		e.Findings.AddDuplicateFlights(observerName, flightID, len(matching), expected.USSName, observation.Query)
	}

	switch {
	case tResponse.Before(tMin):
		// This flight should definitely not have been observed yet.
		if len(matching) > 0 {
			e.Findings.AddPrematureFlight(observerName, flightID, tMin, tResponse, expected.USSName, observation.Query)
		}
	case tResponse.After(tMax.Add(e.RIDVer.RealtimePeriod).Add(e.Config.MaxPropagationLatency)):
		// This flight should no longer be observable.
		if len(matching) > 0 {
			e.Findings.AddLingeringFlight(observerName, flightID, tMax, tInitiated, expected.USSName, observation.Query)
		}
	case tInitiated.After(tMin.Add(e.Config.MaxPropagationLatency)) && tInitiated.Before(tMax.Add(e.RIDVer.RealtimePeriod)):
		// This flight should definitely have been observed.
		if len(matching) == 0 {
			e.Findings.AddMissingFlight(observerName, expected, expected.USSName, observation.Query)
		}
	case tInitiated.After(tMin):
		// TODO: propagation-latency finding (the response fell between the
		// edges above, within the margin where absence is not conclusive).
	}

	// TODO: check position, altitude, flight details, etc. on matching flights.
}

// telemetryBounds returns the earliest and latest sample timestamps.
func telemetryBounds(samples []models.TelemetrySample) (tMin, tMax time.Time) {
	for i, s := range samples {
		if i == 0 || s.Timestamp.Before(tMin) {
			tMin = s.Timestamp
		}
		if i == 0 || s.Timestamp.After(tMax) {
			tMax = s.Timestamp
		}
	}
	return tMin, tMax
}
