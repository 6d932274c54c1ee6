// Package qualifier is the public facade over the RID conformance test
// harness: it wires together track loading, payload injection, polling, and
// observation evaluation behind Config, New, and Run, mirroring the shape of
// the teacher engine's own facade (engine.Config / engine.New / engine.Start).
package qualifier

import (
	"log/slog"
	"time"

	"github.com/99souls/ridqualifier/qualifier/internal/resilience"
	"github.com/99souls/ridqualifier/qualifier/models"
	"github.com/99souls/ridqualifier/qualifier/telemetry/metrics"
)

// ObserverEndpoint names one Display Provider observer to poll: BaseURL is
// its root URL, and Name is the display name findings are recorded under.
type ObserverEndpoint struct {
	Name    string
	BaseURL string
}

// Config is the public configuration surface for the Qualifier facade.
type Config struct {
	// TracksRoot is the directory containing "<Locale>/aircraft_states/*"
	// track files (spec §4.A).
	TracksRoot string

	// Test is the full test configuration: locale, reference/start times, and
	// per-USS track allocation (spec §3 RIDQualifierTestConfiguration).
	Test models.RIDQualifierTestConfiguration

	// Evaluation tunes the polling scheduler and observation evaluator.
	Evaluation models.EvaluationConfiguration

	// RIDVersion selects the ASTM F3411 revision constants in force.
	RIDVersion models.RIDVersion

	// Observers names every display-provider endpoint to poll. Order matters:
	// spec §5 requires observers be queried sequentially per instant, in
	// configuration order, to preserve deterministic ordering of findings.
	Observers []ObserverEndpoint

	// InjectionBearerToken and ObserverBearerToken authenticate outbound
	// calls; empty means no Authorization header is sent.
	InjectionBearerToken string
	ObserverBearerToken  string

	// Resilience tunes the per-host rate limiter/circuit breaker wrapping
	// every outbound injection and observation call.
	Resilience resilience.Config

	// DryRun builds injection payloads but skips submission and evaluation —
	// useful for validating track data and USS allocation offline.
	DryRun bool

	// Logger receives correlated progress and outcome logging for the run.
	// A nil Logger falls back to slog.Default().
	Logger *slog.Logger

	// Metrics receives counters for payloads built, flights injected, polls
	// run, and findings by kind. A nil Metrics discards every observation.
	Metrics metrics.Provider

	// TracingEnabled wraps injection and evaluation in spans whose trace/span
	// IDs are correlated into every log line emitted during the run.
	TracingEnabled bool
}

// Defaults returns a Config with conservative, F3411-22a-based defaults.
// Callers must still set TracksRoot, Test, and Observers.
func Defaults() Config {
	return Config{
		Evaluation: models.EvaluationConfiguration{
			MinPollingInterval:     5 * time.Second,
			MaxPropagationLatency:  10 * time.Second,
			MinQueryDiagonalMeters: 600,
			RepeatQueryRectPeriod:  0,
		},
		RIDVersion: models.RIDVersionF3411v22,
		Resilience: resilience.DefaultConfig(),
	}
}
