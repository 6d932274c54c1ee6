package observer

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/99souls/ridqualifier/qualifier/internal/geometry"
	"github.com/99souls/ridqualifier/qualifier/internal/resilience"
)

type stubDoer struct {
	status  int
	body    string
	err     error
	lastURL string
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.lastURL = req.URL.String()
	if s.err != nil {
		return nil, s.err
	}
	return &http.Response{
		StatusCode: s.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(s.body))),
	}, nil
}

func fastLimiter() *resilience.Limiter {
	cfg := resilience.DefaultConfig()
	cfg.InitialRPS = 1000
	return resilience.NewLimiter(cfg, nil)
}

func TestAdapter_ObserveSystem_ParsesSuccessfulResponse(t *testing.T) {
	doer := &stubDoer{status: 200, body: `{"flights":[{"id":"f1"}]}`}
	a := &Adapter{HTTP: doer, Limiter: fastLimiter(), BaseURL: "https://observer.example.com"}

	rect := geometry.Rect{Lo: geometry.LatLng{Lat: 1, Lng: 2}, Hi: geometry.LatLng{Lat: 3, Lng: 4}}
	obs, err := a.ObserveSystem(context.Background(), time.Now(), rect)
	require.NoError(t, err)
	require.NotNil(t, obs.Response)
	require.Len(t, obs.Response.Flights, 1)
	require.Equal(t, "f1", obs.Response.Flights[0].ID)
	require.Equal(t, 200, obs.Query.Response.StatusCode)
}

func TestAdapter_ObserveSystem_NonOKStatusIsAbsenceNotError(t *testing.T) {
	doer := &stubDoer{status: 404, body: ""}
	a := &Adapter{HTTP: doer, Limiter: fastLimiter(), BaseURL: "https://observer.example.com"}

	rect := geometry.Rect{Lo: geometry.LatLng{Lat: 1, Lng: 2}, Hi: geometry.LatLng{Lat: 3, Lng: 4}}
	obs, err := a.ObserveSystem(context.Background(), time.Now(), rect)
	require.NoError(t, err)
	require.Nil(t, obs.Response)
	require.Equal(t, 404, obs.Query.Response.StatusCode)
}

func TestAdapter_ObserveSystem_UnparsableBodyIsAbsenceNotError(t *testing.T) {
	doer := &stubDoer{status: 200, body: "not json"}
	a := &Adapter{HTTP: doer, Limiter: fastLimiter(), BaseURL: "https://observer.example.com"}

	rect := geometry.Rect{Lo: geometry.LatLng{Lat: 1, Lng: 2}, Hi: geometry.LatLng{Lat: 3, Lng: 4}}
	obs, err := a.ObserveSystem(context.Background(), time.Now(), rect)
	require.NoError(t, err)
	require.Nil(t, obs.Response)
}

func TestAdapter_ObserveFlightDetails_ParsesSuccessfulResponse(t *testing.T) {
	doer := &stubDoer{status: 200, body: `{"details":{"id":"f1","operator_id":"op1"}}`}
	a := &Adapter{HTTP: doer, Limiter: fastLimiter(), BaseURL: "https://observer.example.com"}

	obs, err := a.ObserveFlightDetails(context.Background(), "f1")
	require.NoError(t, err)
	require.NotNil(t, obs.Response)
	require.Equal(t, "op1", obs.Response.Details.OperatorID)
	require.Equal(t, "https://observer.example.com/display_data/f1", doer.lastURL)
}

func TestAdapter_ObserveSystem_RequestsDisplayDataWithViewQuery(t *testing.T) {
	doer := &stubDoer{status: 200, body: `{"flights":[]}`}
	a := &Adapter{HTTP: doer, Limiter: fastLimiter(), BaseURL: "https://observer.example.com"}

	rect := geometry.Rect{Lo: geometry.LatLng{Lat: 1, Lng: 2}, Hi: geometry.LatLng{Lat: 3, Lng: 4}}
	_, err := a.ObserveSystem(context.Background(), time.Now(), rect)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(doer.lastURL, "https://observer.example.com/display_data?"))
	require.Contains(t, doer.lastURL, "view=")
}

func TestAdapter_Do_TransportErrorIsWrapped(t *testing.T) {
	doer := &stubDoer{err: context.DeadlineExceeded}
	a := &Adapter{HTTP: doer, Limiter: fastLimiter(), BaseURL: "https://observer.example.com"}

	_, err := a.ObserveFlightDetails(context.Background(), "f1")
	require.Error(t, err)
}
