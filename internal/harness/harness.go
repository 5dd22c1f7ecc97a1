// Package harness drives the engine end to end: failure simulations that
// compare proactive and reactive recovery, multi-timeslot stability runs,
// routing-policy comparisons and link feature extraction.
package harness

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/constellation-resilience/internal/logging"
	"github.com/signalsfoundry/constellation-resilience/internal/observability"
	"github.com/signalsfoundry/constellation-resilience/model"
)

// EndpointResolver maps a pair of ground locations to access satellites.
// *core.AccessResolver satisfies it and reports core.ErrNoAccessNode when a
// shell has no usable satellite.
type EndpointResolver interface {
	ResolvePair(shell string, src, dst model.GeoPoint, timeslot int) (model.NodeID, model.NodeID, error)
}

// FixedEndpoints pins both ends of every route regardless of location.
type FixedEndpoints struct {
	Source, Target model.NodeID
}

// ResolvePair implements EndpointResolver.
func (f FixedEndpoints) ResolvePair(string, model.GeoPoint, model.GeoPoint, int) (model.NodeID, model.NodeID, error) {
	return f.Source, f.Target, nil
}

// Recorder receives harness measurements. *observability.EngineCollector
// satisfies it.
type Recorder interface {
	ObserveScenario(outcome string)
	ObserveReactiveResolve(d time.Duration)
	ObserveCentrality(d time.Duration)
	ObserveStabilitySlot(status string)
	ObservePathSolve(found bool)
	SetSnapshotSize(nodes, edges int)
}

var _ Recorder = (*observability.EngineCollector)(nil)

type nopRecorder struct{}

func (nopRecorder) ObserveScenario(string)               {}
func (nopRecorder) ObserveReactiveResolve(time.Duration) {}
func (nopRecorder) ObserveCentrality(time.Duration)      {}
func (nopRecorder) ObserveStabilitySlot(string)          {}
func (nopRecorder) ObservePathSolve(bool)                {}
func (nopRecorder) SetSnapshotSize(int, int)             {}

// Option customises a harness.
type Option func(*options)

type options struct {
	log     logging.Logger
	metrics Recorder
	now     func() time.Time
	workers int
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.metrics = r
		}
	}
}

// WithClock overrides the wall clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithWorkers bounds how many timeslots a stability run evaluates at once.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		log:     logging.Noop(),
		metrics: nopRecorder{},
		now:     time.Now,
		workers: 4,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func startSpan(ctx context.Context, name, shell string, extra ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs := make([]attribute.KeyValue, 0, len(extra)+1)
	attrs = append(attrs, attribute.String("shell", shell))
	attrs = append(attrs, extra...)
	return observability.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
