package tracks

import (
	"time"

	"github.com/99souls/ridqualifier/qualifier/models"
)

// Rewrite shifts every telemetry timestamp in record onto a fresh wall-clock
// timeline and returns a new record; the input is never mutated (spec §4.B,
// §9: the original mutates in place, which this port deliberately avoids).
//
// anchor is testStartTime + 1 minute. Every sample's timestamp moves by
// anchor - record.ReferenceTime. The returned record's own ReferenceTime is
// then overwritten to testReferenceTime — by design this differs from
// anchor, since the record carries the test's reference time while its
// telemetry is shifted relative to anchor.
func Rewrite(record models.FullFlightRecord, testReferenceTime, testStartTime time.Time) (rewritten models.FullFlightRecord, anchor time.Time) {
	anchor = testStartTime.Add(time.Minute)
	offset := anchor.Sub(record.ReferenceTime)

	out := record.Clone()
	for i := range out.FlightTelemetry.States {
		out.FlightTelemetry.States[i].Timestamp = out.FlightTelemetry.States[i].Timestamp.Add(offset)
	}
	out.ReferenceTime = testReferenceTime
	return out, anchor
}
