package evaluate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/99souls/ridqualifier/qualifier/findings"
	"github.com/99souls/ridqualifier/qualifier/internal/geometry"
	"github.com/99souls/ridqualifier/qualifier/internal/observer"
	"github.com/99souls/ridqualifier/qualifier/models"
)

func baseRIDVersion() models.RIDVersion {
	return models.RIDVersion{
		RealtimePeriod:       60 * time.Second,
		MaxDiagonalKm:        7,
		MaxDetailsDiagonalKm: 3,
	}
}

func baseConfig() models.EvaluationConfiguration {
	return models.EvaluationConfiguration{MaxPropagationLatency: 5 * time.Second}
}

func expectedFlight(flightID string, tMin, tMax time.Time) models.InjectedFlight {
	return models.InjectedFlight{
		USSName: "uss1",
		Flight: models.TestFlight{
			Telemetry: []models.TelemetrySample{
				{Timestamp: tMin},
				{Timestamp: tMax},
			},
			DetailsResponses: []models.TestFlightDetails{
				{Details: models.RIDFlightDetails{ID: flightID}},
			},
		},
	}
}

func observationAt(tInitiated, tResponse time.Time, observed ...models.ObservedFlight) observer.Observation {
	return observer.Observation{
		Query: models.Query{
			Request:  models.QueryRequest{Timestamp: tInitiated},
			Response: models.QueryResponse{StatusCode: 200, ReportedTimestamp: tResponse},
		},
		Response: &models.GetDisplayDataResponse{Flights: observed},
	}
}

func TestEvaluateExpectedFlight_MissingWhenDefinitelyVisible(t *testing.T) {
	now := time.Now()
	tMin, tMax := now, now.Add(10*time.Second)
	expected := expectedFlight("flight1", tMin, tMax)
	sink := findings.NewMemorySink()
	e := &Evaluator{Findings: sink, RIDVer: baseRIDVersion(), Config: baseConfig()}

	obs := observationAt(tMin.Add(6*time.Second), tMin.Add(6*time.Second))
	e.evaluateExpectedFlight("observer1", expected, obs)

	counts := sink.CountByKind()
	require.Equal(t, 1, counts[findings.KindMissingFlight])
}

func TestEvaluateExpectedFlight_NoFindingWhenObservedDuringVisibleWindow(t *testing.T) {
	now := time.Now()
	tMin, tMax := now, now.Add(10*time.Second)
	expected := expectedFlight("flight1", tMin, tMax)
	sink := findings.NewMemorySink()
	e := &Evaluator{Findings: sink, RIDVer: baseRIDVersion(), Config: baseConfig()}

	obs := observationAt(tMin.Add(6*time.Second), tMin.Add(6*time.Second), models.ObservedFlight{ID: "flight1"})
	e.evaluateExpectedFlight("observer1", expected, obs)

	require.Empty(t, sink.Findings())
}

func TestEvaluateExpectedFlight_PrematureWhenObservedBeforeTMin(t *testing.T) {
	now := time.Now()
	tMin, tMax := now, now.Add(10*time.Second)
	expected := expectedFlight("flight1", tMin, tMax)
	sink := findings.NewMemorySink()
	e := &Evaluator{Findings: sink, RIDVer: baseRIDVersion(), Config: baseConfig()}

	before := tMin.Add(-time.Second)
	obs := observationAt(before, before, models.ObservedFlight{ID: "flight1"})
	e.evaluateExpectedFlight("observer1", expected, obs)

	counts := sink.CountByKind()
	require.Equal(t, 1, counts[findings.KindPrematureFlight])
}

func TestEvaluateExpectedFlight_NoFindingWhenAbsentBeforeTMin(t *testing.T) {
	now := time.Now()
	tMin, tMax := now, now.Add(10*time.Second)
	expected := expectedFlight("flight1", tMin, tMax)
	sink := findings.NewMemorySink()
	e := &Evaluator{Findings: sink, RIDVer: baseRIDVersion(), Config: baseConfig()}

	before := tMin.Add(-time.Second)
	obs := observationAt(before, before)
	e.evaluateExpectedFlight("observer1", expected, obs)

	require.Empty(t, sink.Findings())
}

func TestEvaluateExpectedFlight_LingeringWhenObservedLongAfterTMax(t *testing.T) {
	now := time.Now()
	tMin, tMax := now, now.Add(10*time.Second)
	expected := expectedFlight("flight1", tMin, tMax)
	sink := findings.NewMemorySink()
	ridVer := baseRIDVersion()
	cfg := baseConfig()
	e := &Evaluator{Findings: sink, RIDVer: ridVer, Config: cfg}

	after := tMax.Add(ridVer.RealtimePeriod).Add(cfg.MaxPropagationLatency).Add(time.Second)
	obs := observationAt(after, after, models.ObservedFlight{ID: "flight1"})
	e.evaluateExpectedFlight("observer1", expected, obs)

	counts := sink.CountByKind()
	require.Equal(t, 1, counts[findings.KindLingeringFlight])
}

func TestEvaluateExpectedFlight_DuplicateFlightsRecordedRegardlessOfWindow(t *testing.T) {
	now := time.Now()
	tMin, tMax := now, now.Add(10*time.Second)
	expected := expectedFlight("flight1", tMin, tMax)
	sink := findings.NewMemorySink()
	e := &Evaluator{Findings: sink, RIDVer: baseRIDVersion(), Config: baseConfig()}

	mid := tMin.Add(5 * time.Second)
	obs := observationAt(mid, mid, models.ObservedFlight{ID: "flight1"}, models.ObservedFlight{ID: "flight1"})
	e.evaluateExpectedFlight("observer1", expected, obs)

	counts := sink.CountByKind()
	require.Equal(t, 1, counts[findings.KindDuplicateFlights])
	dup := sink.Findings()[0]
	require.Equal(t, 2, dup.Count)
}

func TestEvaluateObservation_AreaTooLargeFindingWhenNot413(t *testing.T) {
	sink := findings.NewMemorySink()
	e := &Evaluator{Findings: sink, RIDVer: baseRIDVersion(), Config: baseConfig()}

	rect := geometry.Rect{Lo: geometry.LatLng{Lat: 0, Lng: 0}, Hi: geometry.LatLng{Lat: 50, Lng: 50}}
	obs := observer.Observation{Query: models.Query{Response: models.QueryResponse{StatusCode: 200}}}
	e.evaluateObservation("observer1", rect, obs)

	counts := sink.CountByKind()
	require.Equal(t, 1, counts[findings.KindAreaTooLargeNotIndicated])
}

func TestEvaluateObservation_NoFindingWhenAreaTooLargeIndicatedWith413(t *testing.T) {
	sink := findings.NewMemorySink()
	e := &Evaluator{Findings: sink, RIDVer: baseRIDVersion(), Config: baseConfig()}

	rect := geometry.Rect{Lo: geometry.LatLng{Lat: 0, Lng: 0}, Hi: geometry.LatLng{Lat: 50, Lng: 50}}
	obs := observer.Observation{Query: models.Query{Response: models.QueryResponse{StatusCode: 413}}}
	e.evaluateObservation("observer1", rect, obs)

	require.Empty(t, sink.Findings())
}

func TestEvaluateObservation_ObservationFailureWhenResponseNil(t *testing.T) {
	sink := findings.NewMemorySink()
	e := &Evaluator{Findings: sink, RIDVer: baseRIDVersion(), Config: baseConfig()}

	rect := geometry.Rect{Lo: geometry.LatLng{Lat: 1, Lng: 1}, Hi: geometry.LatLng{Lat: 1.0001, Lng: 1.0001}}
	obs := observer.Observation{Query: models.Query{Response: models.QueryResponse{StatusCode: 404}}, Response: nil}
	e.evaluateObservation("observer1", rect, obs)

	counts := sink.CountByKind()
	require.Equal(t, 1, counts[findings.KindObservationFailure])
}
