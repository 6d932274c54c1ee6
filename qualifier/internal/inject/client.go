// Package inject submits assembled test payloads to USS injection endpoints
// (spec §4.D). One bad USS aborts the whole run: this is a test-orchestration
// precondition, not a finding, since an incomplete injection invalidates
// every observation that would follow.
package inject

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/99souls/ridqualifier/qualifier/errs"
	"github.com/99souls/ridqualifier/qualifier/internal/resilience"
	"github.com/99souls/ridqualifier/qualifier/models"
)

// HTTPDoer is satisfied by *http.Client; narrowed here so tests can supply a
// stub round-tripper without standing up a real listener.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client submits DeliverablePayloads to their USS's injection endpoint,
// rate-limited and circuit-broken per remote host.
type Client struct {
	HTTP        HTTPDoer
	Limiter     *resilience.Limiter
	BearerToken string
}

// NewClient returns a Client wired to http.DefaultClient and lim.
func NewClient(lim *resilience.Limiter, bearerToken string) *Client {
	return &Client{HTTP: http.DefaultClient, Limiter: lim, BearerToken: bearerToken}
}

// Submit PUTs one payload to its USS. On success it returns the InjectedFlight
// ground-truth record the evaluator will compare observations against.
func (c *Client) Submit(ctx context.Context, payload models.DeliverablePayload) (models.InjectedFlight, error) {
	wire := models.CreateTestParameters{RequestedFlights: payload.InjectionPayload.RequestedFlights}
	body, err := json.Marshal(wire)
	if err != nil {
		return models.InjectedFlight{}, fmt.Errorf("ridqualifier: marshal injection payload for %s: %w", payload.USSName, err)
	}

	url := payload.InjectionBaseURL + payload.InjectionPath
	release, err := c.Limiter.Acquire(ctx, payload.InjectionBaseURL)
	if err != nil {
		return models.InjectedFlight{}, fmt.Errorf("ridqualifier: injection to %s throttled: %w", payload.USSName, err)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		release(resilience.Outcome{Err: err})
		return models.InjectedFlight{}, fmt.Errorf("ridqualifier: build injection request for %s: %w", payload.USSName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}

	resp, err := c.HTTP.Do(req)
	latency := time.Since(start)
	if err != nil {
		release(resilience.Outcome{Err: err, Latency: latency})
		return models.InjectedFlight{}, fmt.Errorf("ridqualifier: injection request to %s failed: %w", payload.USSName, err)
	}
	defer resp.Body.Close()

	ok, classifyErr := errs.ClassifyInjectionStatus(payload.USSName, resp.StatusCode)
	release(resilience.Outcome{Err: classifyErr, Latency: latency})
	if !ok {
		return models.InjectedFlight{}, classifyErr
	}

	flight := payload.InjectionPayload.RequestedFlights[0]
	return models.InjectedFlight{USSName: payload.USSName, Flight: flight}, nil
}
