// Package findings is the mutable, append-only sink that the evaluator and
// injection client write conformance discrepancies into (spec §3). A finding
// is a recorded non-conformance, not a crash: the evaluator keeps running
// after recording one. The sink is not safe for unsynchronized concurrent
// mutation; callers serialize their own calls.
package findings

import (
	"time"

	"github.com/99souls/ridqualifier/qualifier/models"
)

// Kind enumerates the finding kinds Sink records, mirroring its method names.
type Kind string

const (
	KindObservationFailure       Kind = "observation_failure"
	KindDuplicateFlights         Kind = "duplicate_flights"
	KindPrematureFlight          Kind = "premature_flight"
	KindLingeringFlight          Kind = "lingering_flight"
	KindMissingFlight            Kind = "missing_flight"
	KindAreaTooLargeNotIndicated Kind = "area_too_large_not_indicated"
)

// Finding is one recorded discrepancy. Fields not relevant to Kind are zero.
type Finding struct {
	Kind         Kind         `json:"kind"`
	ObserverName string       `json:"observer_name"`
	USSName      string       `json:"uss_name,omitempty"`
	FlightID     string       `json:"flight_id,omitempty"`
	Detail       string       `json:"detail,omitempty"`
	Count        int          `json:"count,omitempty"`
	Diagonal     float64      `json:"diagonal_meters,omitempty"`
	ExpectedAt   time.Time    `json:"expected_at,omitempty"`
	ObservedAt   time.Time    `json:"observed_at,omitempty"`
	Query        models.Query `json:"query"`
	RecordedAt   time.Time    `json:"recorded_at"`
}

// Sink is the append-only finding and query-log destination (spec §3).
type Sink interface {
	AddObservationQuery(query models.Query)
	AddObservationFailure(observerName string, query models.Query)
	AddDuplicateFlights(observerName, flightID string, count int, ussName string, query models.Query)
	AddPrematureFlight(observerName, flightID string, tMin, tResponse time.Time, ussName string, query models.Query)
	AddLingeringFlight(observerName, flightID string, tMax, tInitiated time.Time, ussName string, query models.Query)
	AddMissingFlight(observerName string, expected models.InjectedFlight, ussName string, query models.Query)
	AddAreaTooLargeNotIndicated(observerName string, diagonalMeters float64, query models.Query)
}
