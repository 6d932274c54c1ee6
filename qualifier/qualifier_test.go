package qualifier

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/99souls/ridqualifier/qualifier/models"
)

func writeSampleTrack(t *testing.T, root, locale string) {
	t.Helper()
	dir := filepath.Join(root, locale, "aircraft_states")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	record := models.FullFlightRecord{
		ReferenceTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		FlightTelemetry: models.FlightTelemetry{
			ID: "flight1",
			States: []models.TelemetrySample{
				{Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Position: models.Position{Lat: 45, Lng: 10}},
				{Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 100_000_000, time.UTC), Position: models.Position{Lat: 45.001, Lng: 10.001}},
			},
		},
		FlightDetails: models.FlightDetails{OperationDescription: "test op", SerialNumber: "SN1"},
		OperatorDetails: models.OperatorDetails{
			OperatorID:         "op1",
			OperatorLocation:   models.OperatorLocation{Lat: 45, Lng: 10},
			RegistrationNumber: "REG1",
		},
	}
	data, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "track0.json"), data, 0o644))
}

func TestNew_RequiresTracksRootAndObservers(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestQualifier_Run_DryRunBuildsPayloadsWithoutInjectingOrObserving(t *testing.T) {
	root := t.TempDir()
	writeSampleTrack(t, root, "example")

	cfg := Defaults()
	cfg.TracksRoot = root
	cfg.DryRun = true
	cfg.Test = models.RIDQualifierTestConfiguration{
		Locale:        "example",
		Now:           time.Now(),
		TestStartTime: time.Now(),
		USSes: []models.USSAssignment{
			{USSName: "uss1", InjectionBaseURL: "https://uss1.example.com", AllocatedFlightTrackNumber: 0},
		},
	}
	cfg.Observers = []ObserverEndpoint{{Name: "observer1", BaseURL: "https://observer1.example.com"}}

	q, err := New(cfg)
	require.NoError(t, err)

	report, err := q.Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, q.Snapshot().PayloadsBuilt)
	require.Equal(t, 0, q.Snapshot().FlightsInjected)
	require.NotNil(t, report)
}

func TestQualifier_Run_InjectsAndEvaluatesAgainstStubServers(t *testing.T) {
	root := t.TempDir()
	writeSampleTrack(t, root, "example")

	ussServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ussServer.Close()

	observerServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"flights":[]}`))
	}))
	defer observerServer.Close()

	cfg := Defaults()
	cfg.TracksRoot = root
	cfg.Resilience.InitialRPS = 1000
	cfg.Evaluation.MinPollingInterval = 10 * time.Millisecond
	cfg.Evaluation.MaxPropagationLatency = 0
	cfg.RIDVersion.RealtimePeriod = 0
	now := time.Now()
	cfg.Test = models.RIDQualifierTestConfiguration{
		Locale:        "example",
		Now:           now,
		TestStartTime: now,
		USSes: []models.USSAssignment{
			{USSName: "uss1", InjectionBaseURL: ussServer.URL, AllocatedFlightTrackNumber: 0},
		},
	}
	cfg.Observers = []ObserverEndpoint{{Name: "observer1", BaseURL: observerServer.URL}}

	q, err := New(cfg)
	require.NoError(t, err)

	report, err := q.Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, q.Snapshot().FlightsInjected)
	require.NotEmpty(t, report.Queries)
}
