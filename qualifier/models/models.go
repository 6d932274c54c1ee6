// Package models holds the closed, statically-typed data model shared by every
// subsystem of the qualifier: on-disk track records, the payloads assembled for
// injection, and the wire types returned by Display Provider observers.
//
// Unlike the dynamically-typed original this was ported from, every shape here
// is a concrete struct, so syntactically malformed JSON or a field of the
// wrong type fails to unmarshal. Decoding uses plain encoding/json: unknown
// fields are ignored and missing fields are left at their zero values.
package models

import (
	"encoding/json"
	"time"

	"github.com/99souls/ridqualifier/qualifier/errs"
)

// Position is a single lat/lng/alt fix. Lat must be in [-90,90], Lng in [-180,180].
type Position struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
	Alt float64 `json:"alt" yaml:"alt"`
}

// TelemetrySample is one position+timestamp record for one aircraft.
type TelemetrySample struct {
	Timestamp time.Time `json:"timestamp"`
	Position  Position  `json:"position"`
}

// FlightTelemetry is the ordered, strictly-increasing-timestamp sequence of
// samples for a single recorded flight, plus the stable flight id it reports.
type FlightTelemetry struct {
	ID     string            `json:"id"`
	States []TelemetrySample `json:"states"`
}

// FlightDetails describes the operation a recorded flight was conducting.
type FlightDetails struct {
	OperationDescription string `json:"operation_description"`
	SerialNumber         string `json:"serial_number"`
}

// OperatorLocation is the operator's ground position at the time of flight.
type OperatorLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// OperatorDetails identifies the operator of a recorded flight.
type OperatorDetails struct {
	OperatorID         string           `json:"operator_id"`
	OperatorLocation   OperatorLocation `json:"operator_location"`
	RegistrationNumber string           `json:"registration_number"`
}

// FullFlightRecord is a recorded flight as read from disk.
//
// Invariants: Telemetry.States timestamps are strictly increasing; every
// position's Lat is in [-90,90] and Lng in [-180,180]. Validate() checks both.
type FullFlightRecord struct {
	ReferenceTime   time.Time       `json:"reference_time"`
	FlightTelemetry FlightTelemetry `json:"flight_telemetry"`
	FlightDetails   FlightDetails   `json:"flight_details"`
	OperatorDetails OperatorDetails `json:"operator_details"`
}

// Clone returns a deep copy so callers (notably the timeline rewriter) never
// alias the loader's in-memory record.
func (r FullFlightRecord) Clone() FullFlightRecord {
	out := r
	out.FlightTelemetry.States = make([]TelemetrySample, len(r.FlightTelemetry.States))
	copy(out.FlightTelemetry.States, r.FlightTelemetry.States)
	return out
}

// Validate checks the invariants documented on FullFlightRecord.
func (r FullFlightRecord) Validate() error {
	states := r.FlightTelemetry.States
	for i, s := range states {
		if s.Position.Lat < -90 || s.Position.Lat > 90 {
			return &errs.InvalidRecordError{Reason: "latitude out of range", Index: i}
		}
		if s.Position.Lng < -180 || s.Position.Lng > 180 {
			return &errs.InvalidRecordError{Reason: "longitude out of range", Index: i}
		}
		if i > 0 && !states[i].Timestamp.After(states[i-1].Timestamp) {
			return &errs.InvalidRecordError{Reason: "telemetry timestamps not strictly increasing", Index: i}
		}
	}
	return nil
}

// USSAssignment binds a USS identity to exactly one recorded track.
type USSAssignment struct {
	USSName                    string `json:"uss_name" yaml:"uss_name"`
	InjectionBaseURL           string `json:"injection_base_url" yaml:"injection_base_url"`
	AllocatedFlightTrackNumber int    `json:"allocated_flight_track_number" yaml:"allocated_flight_track_number"`
}

// RIDFlightDetails is the details payload reported to a USS for a test flight.
type RIDFlightDetails struct {
	ID                   string           `json:"id"`
	OperatorID           string           `json:"operator_id"`
	OperatorLocation     OperatorLocation `json:"operator_location"`
	OperationDescription string           `json:"operation_description"`
	SerialNumber         string           `json:"serial_number"`
	RegistrationNumber   string           `json:"registration_number"`
}

// TestFlightDetails pairs a details payload with the time it becomes effective.
type TestFlightDetails struct {
	EffectiveAfter time.Time        `json:"effective_after"`
	Details        RIDFlightDetails `json:"details"`
}

// TestFlight is one flight as submitted to a USS's injection endpoint.
type TestFlight struct {
	InjectionID      string              `json:"injection_id"`
	Telemetry        []TelemetrySample   `json:"telemetry"`
	DetailsResponses []TestFlightDetails `json:"details_responses"`
}

// TestPayload is one injection envelope, scoped to a single USS.
type TestPayload struct {
	TestID           string       `json:"test_id"`
	RequestedFlights []TestFlight `json:"requested_flights"`
}

// CreateTestParameters is the wire envelope PUT to a USS injection endpoint.
type CreateTestParameters struct {
	RequestedFlights []TestFlight `json:"requested_flights"`
}

// DeliverablePayload is a (path, body, destination) tuple built once per USS
// at build time and never mutated afterward.
type DeliverablePayload struct {
	USSName          string
	InjectionBaseURL string
	InjectionPath    string
	InjectionPayload TestPayload
}

// InjectedFlight is the ground truth the evaluator compares observations
// against: one (USS identity, TestFlight) pair per USS, owned by the
// evaluator for the lifetime of a run.
type InjectedFlight struct {
	USSName string
	Flight  TestFlight
}

// EvaluationConfiguration tunes the polling scheduler and evaluator. Its
// time.Duration fields unmarshal from YAML as duration strings like "5s"
// (yaml.v3 parses these and rejects bare integers) and from JSON as plain
// nanosecond integers (encoding/json does not parse duration strings).
type EvaluationConfiguration struct {
	MinPollingInterval     time.Duration `json:"min_polling_interval" yaml:"min_polling_interval"`
	MaxPropagationLatency  time.Duration `json:"max_propagation_latency" yaml:"max_propagation_latency"`
	MinQueryDiagonalMeters float64       `json:"min_query_diagonal_meters" yaml:"min_query_diagonal_meters"`
	RepeatQueryRectPeriod  int           `json:"repeat_query_rect_period" yaml:"repeat_query_rect_period"`
}

// RIDVersion captures the constants that vary between ASTM F3411 revisions.
type RIDVersion struct {
	Name                 string
	RealtimePeriod       time.Duration
	MaxDiagonalKm        float64
	MaxDetailsDiagonalKm float64
	ReadScope            string
	InjectScope          string
}

// RIDVersionF3411v19 matches the ASTM F3411-19 revision's constants.
var RIDVersionF3411v19 = RIDVersion{
	Name:                 "F3411-19",
	RealtimePeriod:       60 * time.Second,
	MaxDiagonalKm:        7,
	MaxDetailsDiagonalKm: 3,
	ReadScope:            "rid.display_provider",
	InjectScope:          "rid.inject_test_data",
}

// RIDVersionF3411v22 matches the ASTM F3411-22a revision's constants.
var RIDVersionF3411v22 = RIDVersion{
	Name:                 "F3411-22a",
	RealtimePeriod:       60 * time.Second,
	MaxDiagonalKm:        7,
	MaxDetailsDiagonalKm: 3,
	ReadScope:            "rid.display_provider",
	InjectScope:          "rid.inject_test_data",
}

// RIDQualifierTestConfiguration is the top-level configuration surface for a run.
type RIDQualifierTestConfiguration struct {
	Locale        string          `json:"locale" yaml:"locale"`
	Now           time.Time       `json:"now" yaml:"now"`
	TestStartTime time.Time       `json:"test_start_time" yaml:"test_start_time"`
	USSes         []USSAssignment `json:"usses" yaml:"usses"`
}

// QueryRequest describes the request half of an HTTP exchange.
type QueryRequest struct {
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// QueryResponse describes the response half of an HTTP exchange.
type QueryResponse struct {
	StatusCode        int             `json:"status_code"`
	Body              json.RawMessage `json:"body,omitempty"`
	ReportedTimestamp time.Time       `json:"reported_timestamp"`
}

// Query is a record of one HTTP exchange, produced once per attempt.
type Query struct {
	Request  QueryRequest  `json:"request"`
	Response QueryResponse `json:"response"`
}

// Duration is how long the exchange took end to end.
func (q Query) Duration() time.Duration {
	return q.Response.ReportedTimestamp.Sub(q.Request.Timestamp)
}

// ObservedFlight is one flight entry in a display_data response.
type ObservedFlight struct {
	ID               string            `json:"id"`
	RecentPositions  []TelemetrySample `json:"recent_positions,omitempty"`
}

// GetDisplayDataResponse is the parsed body of a successful display_data query.
type GetDisplayDataResponse struct {
	Flights []ObservedFlight `json:"flights"`
}

// GetDetailsResponse is the parsed body of a successful flight-details query.
type GetDetailsResponse struct {
	Details RIDFlightDetails `json:"details"`
}
