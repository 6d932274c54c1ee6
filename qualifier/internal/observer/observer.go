// Package observer queries a Display Provider's observation API on behalf of
// the evaluator (spec §4.H). Absence is always represented as a zero value
// plus nil error and a non-200/unparsable Query record: the evaluator, not
// this package, decides whether an absence is a finding.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/99souls/ridqualifier/qualifier/internal/geometry"
	"github.com/99souls/ridqualifier/qualifier/internal/resilience"
	"github.com/99souls/ridqualifier/qualifier/models"
)

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Adapter queries one observer's display_data and flight-details endpoints.
type Adapter struct {
	HTTP        HTTPDoer
	Limiter     *resilience.Limiter
	BaseURL     string
	BearerToken string
}

// NewAdapter returns an Adapter wired to http.DefaultClient and lim.
func NewAdapter(baseURL string, lim *resilience.Limiter, bearerToken string) *Adapter {
	return &Adapter{HTTP: http.DefaultClient, Limiter: lim, BaseURL: baseURL, BearerToken: bearerToken}
}

// Observation is the outcome of one display_data query: the parsed response
// (if any) alongside the full Query exchange record for findings/reporting.
type Observation struct {
	Query    models.Query
	Response *models.GetDisplayDataResponse // nil if the query did not succeed
}

// ObserveSystem queries the display_data endpoint for the given rectangle at
// instant t.
func (a *Adapter) ObserveSystem(ctx context.Context, t time.Time, rect geometry.Rect) (Observation, error) {
	q := url.Values{}
	q.Set("view", fmt.Sprintf("%f,%f,%f,%f", rect.Lo.Lat, rect.Lo.Lng, rect.Hi.Lat, rect.Hi.Lng))
	reqURL := a.BaseURL + "/display_data?" + q.Encode()

	query, bodyBytes, err := a.do(ctx, reqURL)
	if err != nil {
		return Observation{Query: query}, err
	}

	obs := Observation{Query: query}
	if query.Response.StatusCode != http.StatusOK {
		return obs, nil
	}

	var parsed models.GetDisplayDataResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return obs, nil // unparsable body is treated as absence, not a fatal error
	}
	obs.Response = &parsed
	return obs, nil
}

// DetailsObservation is the outcome of one flight-details query.
type DetailsObservation struct {
	Query    models.Query
	Response *models.GetDetailsResponse
}

// ObserveFlightDetails queries the flight-details endpoint for the given
// observed flight id.
func (a *Adapter) ObserveFlightDetails(ctx context.Context, flightID string) (DetailsObservation, error) {
	reqURL := a.BaseURL + "/display_data/" + url.PathEscape(flightID)

	query, bodyBytes, err := a.do(ctx, reqURL)
	if err != nil {
		return DetailsObservation{Query: query}, err
	}

	obs := DetailsObservation{Query: query}
	if query.Response.StatusCode != http.StatusOK {
		return obs, nil
	}

	var parsed models.GetDetailsResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return obs, nil
	}
	obs.Response = &parsed
	return obs, nil
}

// do performs the rate-limited GET and returns the Query exchange record
// plus the raw response body. A non-nil error means the request could not
// be attempted or completed at all (throttled, transport failure); a
// completed-but-non-200 exchange is reported via query.Response.StatusCode,
// not via error.
func (a *Adapter) do(ctx context.Context, reqURL string) (models.Query, []byte, error) {
	release, err := a.Limiter.Acquire(ctx, a.BaseURL)
	if err != nil {
		return models.Query{}, nil, fmt.Errorf("ridqualifier: observation of %s throttled: %w", a.BaseURL, err)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		release(resilience.Outcome{Err: err})
		return models.Query{}, nil, fmt.Errorf("ridqualifier: build observation request: %w", err)
	}
	if a.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.BearerToken)
	}

	request := models.QueryRequest{Method: http.MethodGet, URL: reqURL, Timestamp: start}

	resp, err := a.HTTP.Do(req)
	latency := time.Since(start)
	if err != nil {
		release(resilience.Outcome{Err: err, Latency: latency})
		query := models.Query{Request: request, Response: models.QueryResponse{ReportedTimestamp: time.Now()}}
		return query, nil, fmt.Errorf("ridqualifier: observation request to %s failed: %w", a.BaseURL, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	release(resilience.Outcome{Err: readErr, Latency: latency})

	query := models.Query{
		Request: request,
		Response: models.QueryResponse{
			StatusCode:        resp.StatusCode,
			Body:              rawOrNil(body),
			ReportedTimestamp: time.Now(),
		},
	}
	if readErr != nil {
		return query, nil, nil
	}
	return query, body, nil
}

func rawOrNil(b []byte) json.RawMessage {
	if len(b) == 0 || !json.Valid(b) {
		return nil
	}
	return json.RawMessage(b)
}
