package inject

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/99souls/ridqualifier/qualifier/errs"
	"github.com/99souls/ridqualifier/qualifier/internal/resilience"
	"github.com/99souls/ridqualifier/qualifier/models"
)

type stubDoer struct {
	status int
	err    error
	lastReq *http.Request
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &http.Response{
		StatusCode: s.status,
		Body:       io.NopCloser(bytes.NewReader(nil)),
	}, nil
}

func fastLimiter() *resilience.Limiter {
	cfg := resilience.DefaultConfig()
	cfg.InitialRPS = 1000
	return resilience.NewLimiter(cfg, nil)
}

func samplePayload() models.DeliverablePayload {
	return models.DeliverablePayload{
		USSName:          "uss1",
		InjectionBaseURL: "https://uss1.example.com",
		InjectionPath:    "/tests/abc",
		InjectionPayload: models.TestPayload{
			TestID: "abc",
			RequestedFlights: []models.TestFlight{
				{InjectionID: "flight-1"},
			},
		},
	}
}

func TestClient_Submit_SuccessReturnsInjectedFlight(t *testing.T) {
	doer := &stubDoer{status: 200}
	client := &Client{HTTP: doer, Limiter: fastLimiter(), BearerToken: "token123"}

	flight, err := client.Submit(context.Background(), samplePayload())
	require.NoError(t, err)
	require.Equal(t, "uss1", flight.USSName)
	require.Equal(t, "flight-1", flight.Flight.InjectionID)
	require.Equal(t, http.MethodPut, doer.lastReq.Method)
	require.Equal(t, "Bearer token123", doer.lastReq.Header.Get("Authorization"))
}

func TestClient_Submit_BodyWrapsRequestedFlightsOnly(t *testing.T) {
	doer := &stubDoer{status: 200}
	client := &Client{HTTP: doer, Limiter: fastLimiter()}

	_, err := client.Submit(context.Background(), samplePayload())
	require.NoError(t, err)

	sent, err := io.ReadAll(doer.lastReq.Body)
	require.NoError(t, err)

	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(sent, &wire))
	require.Contains(t, wire, "requested_flights")
	require.NotContains(t, wire, "test_id")

	var params models.CreateTestParameters
	require.NoError(t, json.Unmarshal(sent, &params))
	require.Len(t, params.RequestedFlights, 1)
	require.Equal(t, "flight-1", params.RequestedFlights[0].InjectionID)
}

func TestClient_Submit_ClassifiesFailureStatus(t *testing.T) {
	doer := &stubDoer{status: 409}
	client := &Client{HTTP: doer, Limiter: fastLimiter()}

	_, err := client.Submit(context.Background(), samplePayload())
	require.Error(t, err)
	var injErr *errs.InjectionFailedError
	require.ErrorAs(t, err, &injErr)
	require.Equal(t, errs.ReasonTestAlreadyExists, injErr.Reason)
}

func TestClient_Submit_TransportErrorIsWrapped(t *testing.T) {
	doer := &stubDoer{err: context.DeadlineExceeded}
	client := &Client{HTTP: doer, Limiter: fastLimiter()}

	_, err := client.Submit(context.Background(), samplePayload())
	require.Error(t, err)
}
