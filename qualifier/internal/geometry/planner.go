package geometry

import (
	"time"

	"github.com/99souls/ridqualifier/qualifier/errs"
	"github.com/99souls/ridqualifier/qualifier/models"
)

// Planner computes the query rectangle to observe at a given instant (spec
// §4.E).
type Planner struct {
	RealtimePeriod        time.Duration
	MaxPropagationLatency time.Duration
	MinQueryDiagonal      float64 // meters
	Distance              DistanceFunc
}

// NewPlanner returns a Planner; Distance defaults to DefaultDistance if nil.
func NewPlanner(realtimePeriod, maxPropagationLatency time.Duration, minQueryDiagonal float64, dist DistanceFunc) *Planner {
	if dist == nil {
		dist = DefaultDistance
	}
	return &Planner{
		RealtimePeriod:        realtimePeriod,
		MaxPropagationLatency: maxPropagationLatency,
		MinQueryDiagonal:      minQueryDiagonal,
		Distance:              dist,
	}
}

// Rect computes the rectangle to query at time t given the full set of
// injected flights, per spec §4.E:
//
//  1. Accumulate min/max lat/lng over telemetry samples whose timestamp
//     falls in [t-realtime_period-max_propagation_latency, t].
//  2. If no sample falls in that window, fall back to the degenerate point
//     at the mean lat/lng across all telemetry.
//  3. Expand the rectangle (padding a degenerate point first) until its
//     diagonal meets MinQueryDiagonal, overshooting by 1% each iteration so
//     the loop provably terminates.
func (p *Planner) Rect(t time.Time, flights []models.InjectedFlight) (Rect, error) {
	tMin := t.Add(-p.RealtimePeriod - p.MaxPropagationLatency)
	tMax := t

	latMin, lngMin := 90.0, 360.0
	latMax, lngMax := -90.0, -360.0
	dataExists := false

	for _, flight := range flights {
		for _, sample := range flight.Flight.Telemetry {
			ts := sample.Timestamp
			if (ts.Equal(tMin) || ts.After(tMin)) && (ts.Equal(tMax) || ts.Before(tMax)) {
				dataExists = true
				latMin = min(latMin, sample.Position.Lat)
				latMax = max(latMax, sample.Position.Lat)
				lngMin = min(lngMin, sample.Position.Lng)
				lngMax = max(lngMax, sample.Position.Lng)
			}
		}
	}

	if !dataExists {
		var latSum, lngSum float64
		var n int
		for _, flight := range flights {
			for _, sample := range flight.Flight.Telemetry {
				latSum += sample.Position.Lat
				lngSum += sample.Position.Lng
				n++
			}
		}
		if n == 0 {
			latMin, latMax, lngMin, lngMax = 0, 0, 0, 0
		} else {
			latMin, latMax = latSum/float64(n), latSum/float64(n)
			lngMin, lngMax = lngSum/float64(n), lngSum/float64(n)
		}
	}

	rect := Rect{Lo: LatLng{Lat: latMin, Lng: lngMin}, Hi: LatLng{Lat: latMax, Lng: lngMax}}
	return p.expand(rect)
}

// expand implements the "overshoot" loop from spec §4.E: a rectangle's
// diagonal strictly grows every iteration after a degenerate point is first
// padded, so this halts in O(1) iterations for realistic inputs. The 64-pass
// cap is an implementer-defined safety net per spec §4.E/§7.
func (p *Planner) expand(rect Rect) (Rect, error) {
	const overshoot = 1.01
	for i := 0; i < maxExpansionIterations; i++ {
		diagonal := DiagonalMeters(rect, p.Distance)
		if diagonal >= p.MinQueryDiagonal {
			return rect, nil
		}
		if rect.IsPoint() {
			rect = Rect{
				Lo: LatLng{Lat: rect.Lo.Lat - 1e-5, Lng: rect.Lo.Lng - 1e-5},
				Hi: LatLng{Lat: rect.Hi.Lat + 1e-5, Lng: rect.Hi.Lng + 1e-5},
			}
			continue
		}

		center := rect.Center()
		latSpan := (rect.Hi.Lat - rect.Lo.Lat) * p.MinQueryDiagonal / diagonal * overshoot
		lngSpan := (rect.Hi.Lng - rect.Lo.Lng) * p.MinQueryDiagonal / diagonal * overshoot
		rect = Rect{
			Lo: LatLng{Lat: center.Lat - 0.5*latSpan, Lng: center.Lng - 0.5*lngSpan},
			Hi: LatLng{Lat: center.Lat + 0.5*latSpan, Lng: center.Lng + 0.5*lngSpan},
		}
	}
	return Rect{}, errs.ErrDegenerateGeometry
}
