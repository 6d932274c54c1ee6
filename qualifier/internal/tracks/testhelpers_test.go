package tracks

import (
	"encoding/json"
	"testing"

	"github.com/99souls/ridqualifier/qualifier/models"
)

func marshalRecord(t *testing.T, record models.FullFlightRecord) []byte {
	t.Helper()
	raw, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	return raw
}
