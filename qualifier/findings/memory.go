package findings

import (
	"sync"
	"time"

	"github.com/99souls/ridqualifier/qualifier/models"
)

// MemorySink is an in-memory Sink implementation, safe for concurrent use.
// The Sink interface itself only guarantees correctness under
// serialized calls; this implementation adds its own locking so a future
// per-observer-parallel evaluator can share one sink without additional
// synchronization at the call site.
type MemorySink struct {
	mu       sync.Mutex
	queries  []models.Query
	findings []Finding
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) AddObservationQuery(query models.Query) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
}

func (s *MemorySink) AddObservationFailure(observerName string, query models.Query) {
	s.append(Finding{
		Kind:         KindObservationFailure,
		ObserverName: observerName,
		Query:        query,
	})
}

func (s *MemorySink) AddDuplicateFlights(observerName, flightID string, count int, ussName string, query models.Query) {
	s.append(Finding{
		Kind:         KindDuplicateFlights,
		ObserverName: observerName,
		FlightID:     flightID,
		Count:        count,
		USSName:      ussName,
		Query:        query,
	})
}

func (s *MemorySink) AddPrematureFlight(observerName, flightID string, tMin, tResponse time.Time, ussName string, query models.Query) {
	s.append(Finding{
		Kind:         KindPrematureFlight,
		ObserverName: observerName,
		FlightID:     flightID,
		ExpectedAt:   tMin,
		ObservedAt:   tResponse,
		USSName:      ussName,
		Query:        query,
	})
}

func (s *MemorySink) AddLingeringFlight(observerName, flightID string, tMax, tInitiated time.Time, ussName string, query models.Query) {
	s.append(Finding{
		Kind:         KindLingeringFlight,
		ObserverName: observerName,
		FlightID:     flightID,
		ExpectedAt:   tMax,
		ObservedAt:   tInitiated,
		USSName:      ussName,
		Query:        query,
	})
}

func (s *MemorySink) AddMissingFlight(observerName string, expected models.InjectedFlight, ussName string, query models.Query) {
	flightID := ""
	if len(expected.Flight.DetailsResponses) > 0 {
		flightID = expected.Flight.DetailsResponses[0].Details.ID
	}
	s.append(Finding{
		Kind:         KindMissingFlight,
		ObserverName: observerName,
		FlightID:     flightID,
		USSName:      ussName,
		Query:        query,
	})
}

func (s *MemorySink) AddAreaTooLargeNotIndicated(observerName string, diagonalMeters float64, query models.Query) {
	s.append(Finding{
		Kind:         KindAreaTooLargeNotIndicated,
		ObserverName: observerName,
		Diagonal:     diagonalMeters,
		Query:        query,
	})
}

func (s *MemorySink) append(f Finding) {
	f.RecordedAt = time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findings = append(s.findings, f)
}

// Findings returns a snapshot copy of all recorded findings.
func (s *MemorySink) Findings() []Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Finding, len(s.findings))
	copy(out, s.findings)
	return out
}

// Queries returns a snapshot copy of all logged observation queries.
func (s *MemorySink) Queries() []models.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Query, len(s.queries))
	copy(out, s.queries)
	return out
}

// CountByKind tallies recorded findings per Kind.
func (s *MemorySink) CountByKind() map[Kind]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[Kind]int)
	for _, f := range s.findings {
		counts[f.Kind]++
	}
	return counts
}

var _ Sink = (*MemorySink)(nil)
