// Package metrics defines the qualifier's metrics provider abstraction,
// trimmed from the teacher engine's Provider interface to the Counter and
// Gauge kinds — no histograms, since there's no steady request stream to
// bucket. The qualifier facade emits counters for payloads built, flights
// injected, polls run, and findings by kind; it emits no gauges.
package metrics

import "context"

// Provider constructs named, labeled counters and gauges.
type Provider interface {
	NewCounter(opts CounterOpts) Counter
	NewGauge(opts GaugeOpts) Gauge
	Health(ctx context.Context) error
}

// Counter is a monotonically increasing metric.
type Counter interface {
	Inc(delta float64, labels ...string)
}

// Gauge is a metric that can move in either direction.
type Gauge interface {
	Set(v float64, labels ...string)
	Add(delta float64, labels ...string)
}

// CommonOpts names and labels a metric.
type CommonOpts struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string
	Labels    []string
}

// CounterOpts configures a Counter.
type CounterOpts struct{ CommonOpts }

// GaugeOpts configures a Gauge.
type GaugeOpts struct{ CommonOpts }

type noopProvider struct{}
type noopCounter struct{}
type noopGauge struct{}

// NewNoopProvider returns a Provider that discards every observation.
func NewNoopProvider() Provider { return noopProvider{} }

func (noopProvider) NewCounter(CounterOpts) Counter  { return noopCounter{} }
func (noopProvider) NewGauge(GaugeOpts) Gauge        { return noopGauge{} }
func (noopProvider) Health(context.Context) error    { return nil }
func (noopCounter) Inc(float64, ...string)           {}
func (noopGauge) Set(float64, ...string)             {}
func (noopGauge) Add(float64, ...string)             {}
