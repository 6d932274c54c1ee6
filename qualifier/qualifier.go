package qualifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/99souls/ridqualifier/qualifier/findings"
	"github.com/99souls/ridqualifier/qualifier/internal/evaluate"
	"github.com/99souls/ridqualifier/qualifier/internal/geometry"
	"github.com/99souls/ridqualifier/qualifier/internal/inject"
	"github.com/99souls/ridqualifier/qualifier/internal/observer"
	"github.com/99souls/ridqualifier/qualifier/internal/resilience"
	"github.com/99souls/ridqualifier/qualifier/internal/scheduler"
	"github.com/99souls/ridqualifier/qualifier/internal/tracks"
	"github.com/99souls/ridqualifier/qualifier/models"
	"github.com/99souls/ridqualifier/qualifier/telemetry/logging"
	"github.com/99souls/ridqualifier/qualifier/telemetry/metrics"
	"github.com/99souls/ridqualifier/qualifier/telemetry/tracing"
)

// runMetrics holds the counters the facade emits over one Run, built once
// at New() time so repeated runs reuse the same registered series.
type runMetrics struct {
	payloadsBuilt   metrics.Counter
	flightsInjected metrics.Counter
	pollsRun        metrics.Counter
	findingsByKind  metrics.Counter
}

func newRunMetrics(provider metrics.Provider) runMetrics {
	const ns, sub = "ridqualifier", "run"
	return runMetrics{
		payloadsBuilt: provider.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
			Namespace: ns, Subsystem: sub, Name: "payloads_built_total", Help: "Injection payloads assembled.",
		}}),
		flightsInjected: provider.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
			Namespace: ns, Subsystem: sub, Name: "flights_injected_total", Help: "Test flights successfully injected.",
		}}),
		pollsRun: provider.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
			Namespace: ns, Subsystem: sub, Name: "polls_total", Help: "Observation polls completed.",
		}}),
		findingsByKind: provider.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
			Namespace: ns, Subsystem: sub, Name: "findings_total", Help: "Conformance findings recorded.",
			Labels: []string{"kind"},
		}}),
	}
}

// Qualifier runs one RID conformance test end to end: build payloads, inject
// them, then poll and evaluate observers until the test data's visibility
// window closes.
type Qualifier struct {
	cfg     Config
	limiter *resilience.Limiter
	sink    *findings.MemorySink
	log     logging.Logger
	metrics runMetrics
	tracer  tracing.Tracer

	mu        sync.RWMutex
	startedAt time.Time
	payloads  []models.DeliverablePayload
	flights   []models.InjectedFlight
}

// New validates cfg and returns a Qualifier ready to Run.
func New(cfg Config) (*Qualifier, error) {
	if cfg.TracksRoot == "" {
		return nil, fmt.Errorf("ridqualifier: TracksRoot is required")
	}
	if len(cfg.Test.USSes) == 0 {
		return nil, fmt.Errorf("ridqualifier: Test.USSes must name at least one USS")
	}
	if len(cfg.Observers) == 0 {
		return nil, fmt.Errorf("ridqualifier: at least one observer is required")
	}

	provider := cfg.Metrics
	if provider == nil {
		provider = metrics.NewNoopProvider()
	}

	return &Qualifier{
		cfg:     cfg,
		limiter: resilience.NewLimiter(cfg.Resilience, nil),
		sink:    findings.NewMemorySink(),
		log:     logging.New(cfg.Logger),
		metrics: newRunMetrics(provider),
		tracer:  tracing.NewTracer(cfg.TracingEnabled),
	}, nil
}

// Run executes one full test cycle: load tracks, build and inject payloads,
// then poll and evaluate every configured observer until t_end. It returns a
// Report summarizing everything findings recorded; when evaluation ends with
// an error, that Report is still returned alongside the error. Failures while
// loading tracks, building payloads, or injecting return a nil Report.
func (q *Qualifier) Run(ctx context.Context) (*findings.Report, error) {
	ctx, span := q.tracer.StartSpan(ctx, "qualifier.Run")
	defer span.End()

	q.mu.Lock()
	q.startedAt = time.Now()
	q.mu.Unlock()

	q.log.InfoCtx(ctx, "loading tracks", "locale", q.cfg.Test.Locale, "root", q.cfg.TracksRoot)
	loader := tracks.NewLoader(q.cfg.TracksRoot)
	records, err := loader.Load(q.cfg.Test.Locale)
	if err != nil {
		q.log.ErrorCtx(ctx, "loading tracks failed", "error", err)
		return nil, fmt.Errorf("ridqualifier: loading tracks: %w", err)
	}

	builder := tracks.NewBuilder()
	payloads, err := builder.Build(q.cfg.Test, records)
	if err != nil {
		q.log.ErrorCtx(ctx, "building payloads failed", "error", err)
		return nil, fmt.Errorf("ridqualifier: building payloads: %w", err)
	}
	q.metrics.payloadsBuilt.Inc(float64(len(payloads)))
	q.log.InfoCtx(ctx, "payloads built", "count", len(payloads))

	q.mu.Lock()
	q.payloads = payloads
	q.mu.Unlock()

	if q.cfg.DryRun {
		return q.report(), nil
	}

	injectClient := inject.NewClient(q.limiter, q.cfg.InjectionBearerToken)
	flights := make([]models.InjectedFlight, 0, len(payloads))
	for _, payload := range payloads {
		injectCtx, injectSpan := q.tracer.StartSpan(ctx, "qualifier.inject")
		flight, err := injectClient.Submit(injectCtx, payload)
		injectSpan.End()
		if err != nil {
			q.log.ErrorCtx(ctx, "injection failed", "uss", payload.USSName, "error", err)
			return nil, fmt.Errorf("ridqualifier: injecting to %s: %w", payload.USSName, err)
		}
		q.metrics.flightsInjected.Inc(1)
		q.log.InfoCtx(ctx, "injection succeeded", "uss", payload.USSName, "test_id", payload.InjectionPayload.TestID)
		flights = append(flights, flight)
	}

	q.mu.Lock()
	q.flights = flights
	q.mu.Unlock()

	observers := make([]evaluate.NamedObserver, 0, len(q.cfg.Observers))
	for _, obs := range q.cfg.Observers {
		observers = append(observers, evaluate.NamedObserver{
			Name:    obs.Name,
			Adapter: observer.NewAdapter(obs.BaseURL, q.limiter, q.cfg.ObserverBearerToken),
		})
	}

	planner := geometry.NewPlanner(
		q.cfg.RIDVersion.RealtimePeriod,
		q.cfg.Evaluation.MaxPropagationLatency,
		q.cfg.Evaluation.MinQueryDiagonalMeters,
		nil,
	)
	evaluator := evaluate.NewEvaluator(q.sink, flights, observers, q.cfg.RIDVersion, q.cfg.Evaluation)
	instrumented := &instrumentedEvaluator{inner: evaluator, q: q}
	sched := scheduler.NewScheduler(q.cfg.Evaluation, q.cfg.RIDVersion, planner, instrumented)

	q.log.InfoCtx(ctx, "evaluation starting", "observers", len(observers), "flights", len(flights))
	runErr := sched.Run(ctx, flights)
	for kind, count := range q.sink.CountByKind() {
		q.metrics.findingsByKind.Inc(float64(count), string(kind))
	}
	if runErr != nil {
		q.log.ErrorCtx(ctx, "evaluation ended with error", "error", runErr)
		return q.report(), fmt.Errorf("ridqualifier: evaluation: %w", runErr)
	}
	q.log.InfoCtx(ctx, "evaluation complete", "findings", len(q.sink.Findings()))

	return q.report(), nil
}

// instrumentedEvaluator counts every poll and wraps it in its own span,
// without altering evaluate.Evaluator's classification logic.
type instrumentedEvaluator struct {
	inner *evaluate.Evaluator
	q     *Qualifier
}

func (e *instrumentedEvaluator) EvaluateInstant(ctx context.Context, t time.Time, rect geometry.Rect) error {
	ctx, span := e.q.tracer.StartSpan(ctx, "qualifier.poll")
	defer span.End()
	e.q.metrics.pollsRun.Inc(1)
	return e.inner.EvaluateInstant(ctx, t, rect)
}

func (q *Qualifier) report() *findings.Report {
	q.mu.RLock()
	defer q.mu.RUnlock()

	names := make([]string, 0, len(q.cfg.Observers))
	for _, obs := range q.cfg.Observers {
		names = append(names, obs.Name)
	}

	r := (&findings.JSONReport{
		Sink:          q.sink,
		StartedAt:     q.startedAt,
		EndedAt:       time.Now(),
		ObserverNames: names,
	}).Build()
	return &r
}

// Snapshot is a point-in-time view of run progress for external health or
// metrics endpoints, mirroring the teacher engine's Engine.Snapshot().
type Snapshot struct {
	StartedAt       time.Time             `json:"started_at"`
	PayloadsBuilt   int                   `json:"payloads_built"`
	FlightsInjected int                   `json:"flights_injected"`
	FindingsByKind  map[findings.Kind]int `json:"findings_by_kind"`
}

// Snapshot returns the current run state. It takes the Qualifier's read lock
// and, while counting findings, the findings sink's lock, which the evaluator
// also takes briefly whenever it records a finding.
func (q *Qualifier) Snapshot() Snapshot {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return Snapshot{
		StartedAt:       q.startedAt,
		PayloadsBuilt:   len(q.payloads),
		FlightsInjected: len(q.flights),
		FindingsByKind:  q.sink.CountByKind(),
	}
}
