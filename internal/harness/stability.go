package harness

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/constellation-resilience/core"
	"github.com/signalsfoundry/constellation-resilience/internal/logging"
	"github.com/signalsfoundry/constellation-resilience/internal/predict"
	"github.com/signalsfoundry/constellation-resilience/internal/routing"
	"github.com/signalsfoundry/constellation-resilience/internal/topology"
	"github.com/signalsfoundry/constellation-resilience/model"
	"github.com/signalsfoundry/constellation-resilience/timectrl"
)

// Slot statuses reported to the metrics recorder.
const (
	SlotSampled      = "sampled"
	SlotNoData       = "no_data"
	SlotNoAccessNode = "no_access_node"
	SlotNoPath       = "no_path"
)

// StabilityRequest asks for the delay jitter of one route over a range of
// timeslots.
type StabilityRequest struct {
	Shell  string
	Range  timectrl.Range
	Source model.GroundUser
	Target model.GroundUser
}

// StabilityHarness compares path delay dispersion when routes are chosen on
// observed latencies versus model-predicted ones. Both routes are always
// measured on observed latencies.
type StabilityHarness struct {
	source    topology.Source
	access    EndpointResolver
	predictor predict.Predictor
	planes    predict.PlaneLookup
	opts      options
}

// NewStabilityHarness wires a stability harness. planes supplies the
// same-orbital-plane feature to the predictor and may be nil.
func NewStabilityHarness(src topology.Source, access EndpointResolver, p predict.Predictor, planes predict.PlaneLookup, opts ...Option) *StabilityHarness {
	return &StabilityHarness{
		source:    src,
		access:    access,
		predictor: p,
		planes:    planes,
		opts:      buildOptions(opts),
	}
}

type slotResult struct {
	status string
	sample model.StabilitySample
}

// Run evaluates every timeslot of the request. Slots are independent and run
// concurrently; a slot without data, access satellites or a route is counted
// as skipped. A malformed matrix, a predictor failure or cancellation aborts
// the run with an error.
func (h *StabilityHarness) Run(ctx context.Context, req StabilityRequest) (report model.JitterReport, err error) {
	if req.Range.From < 1 || req.Range.To < req.Range.From {
		return model.JitterReport{}, fmt.Errorf("invalid timeslot range [%d, %d]", req.Range.From, req.Range.To)
	}
	if h.predictor == nil {
		return model.JitterReport{}, errors.New("stability harness has no predictor")
	}
	ctx, _ = logging.EnsureRunID(ctx)
	ctx, span := startSpan(ctx, "harness.stability", req.Shell,
		attribute.Int("from", req.Range.From),
		attribute.Int("to", req.Range.To),
	)
	defer func() { endSpan(span, err) }()

	log := h.opts.log.With(logging.String("shell", req.Shell))
	weigher := predict.Weigher(h.predictor, h.planes, req.Shell)

	slots := req.Range.Slots()
	results := make([]slotResult, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.opts.workers)
	for i, slot := range slots {
		g.Go(func() error {
			res, err := h.evaluateSlot(gctx, req, slot, weigher)
			if err != nil {
				return fmt.Errorf("timeslot %d: %w", slot, err)
			}
			results[i] = res
			h.opts.metrics.ObserveStabilitySlot(res.status)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.JitterReport{}, err
	}

	report = reduce(req, results)
	log.Info(ctx, "stability run finished",
		logging.Int("from", req.Range.From),
		logging.Int("to", req.Range.To),
		logging.Int("samples", report.SampleCount),
		logging.Int("skipped", report.Skipped.Total()),
		logging.Float("observed_jitter", report.ObservedStdDev),
		logging.Float("predicted_jitter", report.PredictedStdDev),
		logging.Float("improvement_pct", report.ImprovementPercent()),
	)
	return report, nil
}

func (h *StabilityHarness) evaluateSlot(ctx context.Context, req StabilityRequest, slot int, w topology.Weigher) (slotResult, error) {
	if err := ctx.Err(); err != nil {
		return slotResult{}, err
	}
	src, dst, err := h.access.ResolvePair(req.Shell, req.Source.Location, req.Target.Location, slot)
	if err != nil {
		if errors.Is(err, core.ErrNoAccessNode) {
			return slotResult{status: SlotNoAccessNode}, nil
		}
		return slotResult{}, err
	}

	observed, err := topology.Load(ctx, h.source, req.Shell, slot)
	if err != nil {
		if errors.Is(err, topology.ErrDataUnavailable) {
			return slotResult{status: SlotNoData}, nil
		}
		return slotResult{}, err
	}
	predicted, err := observed.Reweighted(w)
	if err != nil {
		return slotResult{}, err
	}

	_, obsMetrics, err := routing.ShortestPath(observed, src, dst)
	h.opts.metrics.ObservePathSolve(err == nil)
	if err != nil {
		if errors.Is(err, routing.ErrNoPath) {
			return slotResult{status: SlotNoPath}, nil
		}
		return slotResult{}, err
	}
	predPath, _, err := routing.ShortestPath(predicted, src, dst)
	h.opts.metrics.ObservePathSolve(err == nil)
	if err != nil {
		if errors.Is(err, routing.ErrNoPath) {
			return slotResult{status: SlotNoPath}, nil
		}
		return slotResult{}, err
	}
	predMetrics, err := routing.Evaluate(observed, predPath)
	if err != nil {
		return slotResult{}, fmt.Errorf("measure predicted route on observed graph: %w", err)
	}

	return slotResult{
		status: SlotSampled,
		sample: model.StabilitySample{
			Timeslot:       slot,
			Source:         src,
			Target:         dst,
			ObservedDelay:  obsMetrics.Weight,
			PredictedDelay: predMetrics.Weight,
			ObservedHops:   obsMetrics.Hops,
			PredictedHops:  predMetrics.Hops,
		},
	}, nil
}

// moments keeps a running mean and sum of squared deviations (Welford), so
// a constant series has exactly zero dispersion.
type moments struct {
	n  int
	mu float64
	m2 float64
}

func (m *moments) add(x float64) {
	m.n++
	d := x - m.mu
	m.mu += d / float64(m.n)
	m.m2 += d * (x - m.mu)
}

func (m moments) mean() float64 { return m.mu }

// stdDev is the sample standard deviation (n-1 denominator). Fewer than two
// samples have no dispersion.
func (m moments) stdDev() float64 {
	if m.n < 2 || m.m2 <= 0 {
		return 0
	}
	return math.Sqrt(m.m2 / float64(m.n-1))
}

func reduce(req StabilityRequest, results []slotResult) model.JitterReport {
	report := model.JitterReport{
		Shell: req.Shell,
		From:  req.Range.From,
		To:    req.Range.To,
	}
	var obs, pred moments
	for _, r := range results {
		switch r.status {
		case SlotSampled:
			obs.add(r.sample.ObservedDelay)
			pred.add(r.sample.PredictedDelay)
			report.Samples = append(report.Samples, r.sample)
		case SlotNoData:
			report.Skipped.NoData++
		case SlotNoAccessNode:
			report.Skipped.NoAccessNode++
		case SlotNoPath:
			report.Skipped.NoPath++
		}
	}
	report.SampleCount = obs.n
	report.ObservedMean = obs.mean()
	report.PredictedMean = pred.mean()
	report.ObservedStdDev = obs.stdDev()
	report.PredictedStdDev = pred.stdDev()
	return report
}
