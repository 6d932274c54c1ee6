package tracks

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/99souls/ridqualifier/qualifier/models"
)

// Builder assembles one DeliverablePayload per USS from the loaded track
// records (spec §4.C). It is pure aside from UUID generation.
type Builder struct{}

// NewBuilder returns a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build walks usses in configuration order, rewrites each allocated track
// onto the test's timeline, and emits one DeliverablePayload per USS with a
// single TestFlight — exactly one flight per USS, as the component table in
// spec §2 requires.
func (b *Builder) Build(cfg models.RIDQualifierTestConfiguration, records []models.FullFlightRecord) ([]models.DeliverablePayload, error) {
	payloads := make([]models.DeliverablePayload, 0, len(cfg.USSes))

	for _, uss := range cfg.USSes {
		idx := uss.AllocatedFlightTrackNumber
		if idx < 0 || idx >= len(records) {
			return nil, fmt.Errorf("ridqualifier: uss %q allocated flight track %d out of range (have %d tracks)", uss.USSName, idx, len(records))
		}

		rewritten, anchor := Rewrite(records[idx], cfg.Now, cfg.TestStartTime)

		ridDetails := models.RIDFlightDetails{
			ID:                   rewritten.FlightTelemetry.ID,
			OperatorID:           rewritten.OperatorDetails.OperatorID,
			OperatorLocation:     rewritten.OperatorDetails.OperatorLocation,
			OperationDescription: rewritten.FlightDetails.OperationDescription,
			SerialNumber:         rewritten.FlightDetails.SerialNumber,
			RegistrationNumber:   rewritten.OperatorDetails.RegistrationNumber,
		}

		testFlight := models.TestFlight{
			InjectionID: uuid.NewString(),
			Telemetry:   rewritten.FlightTelemetry.States,
			DetailsResponses: []models.TestFlightDetails{
				{EffectiveAfter: anchor, Details: ridDetails},
			},
		}

		testID := uuid.NewString()
		payload := models.DeliverablePayload{
			USSName:          uss.USSName,
			InjectionBaseURL: uss.InjectionBaseURL,
			InjectionPath:    "/tests/" + testID,
			InjectionPayload: models.TestPayload{
				TestID:           testID,
				RequestedFlights: []models.TestFlight{testFlight},
			},
		}
		payloads = append(payloads, payload)
	}

	return payloads, nil
}
