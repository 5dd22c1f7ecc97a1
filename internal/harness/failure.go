package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/constellation-resilience/core"
	"github.com/signalsfoundry/constellation-resilience/internal/logging"
	"github.com/signalsfoundry/constellation-resilience/internal/planner"
	"github.com/signalsfoundry/constellation-resilience/internal/risk"
	"github.com/signalsfoundry/constellation-resilience/internal/routing"
	"github.com/signalsfoundry/constellation-resilience/internal/topology"
	"github.com/signalsfoundry/constellation-resilience/model"
)

// Scenario is one failure simulation: a route between two ground users in
// one shell at one timeslot.
type Scenario struct {
	Shell    string
	Timeslot int
	Source   model.GroundUser
	Target   model.GroundUser
}

// FailureHarness compares proactive and reactive recovery when the riskiest
// satellite on a route fails.
type FailureHarness struct {
	source topology.Source
	access EndpointResolver
	opts   options
}

// NewFailureHarness wires a harness to its topology source and endpoint
// resolver.
func NewFailureHarness(src topology.Source, access EndpointResolver, opts ...Option) *FailureHarness {
	return &FailureHarness{source: src, access: access, opts: buildOptions(opts)}
}

// Run executes one scenario. Expected shortfalls (missing data, no access
// satellite, no route, nothing to fail) are reported through the record's
// Outcome. An error is returned only for a malformed topology, an unexpected
// solver failure or a cancelled context.
func (h *FailureHarness) Run(ctx context.Context, sc Scenario) (rec model.ComparisonRecord, err error) {
	ctx, span := startSpan(ctx, "harness.failure", sc.Shell, attribute.Int("timeslot", sc.Timeslot))
	defer func() {
		span.SetAttributes(attribute.String("outcome", string(rec.Outcome)))
		endSpan(span, err)
	}()

	rec = model.ComparisonRecord{
		ID:        uuid.NewString(),
		Shell:     sc.Shell,
		Timeslot:  sc.Timeslot,
		CreatedAt: h.opts.now(),
	}
	log := h.opts.log.With(
		logging.String("scenario_id", rec.ID),
		logging.String("shell", sc.Shell),
		logging.Int("timeslot", sc.Timeslot),
	)

	if err := ctx.Err(); err != nil {
		return rec, err
	}

	rec.Source, rec.Target, err = h.access.ResolvePair(sc.Shell, sc.Source.Location, sc.Target.Location, sc.Timeslot)
	if err != nil {
		if errors.Is(err, core.ErrNoAccessNode) {
			return h.finish(ctx, log, rec, model.OutcomeNoAccessNode, err), nil
		}
		return rec, fmt.Errorf("resolve access satellites: %w", err)
	}

	g, err := topology.Load(ctx, h.source, sc.Shell, sc.Timeslot)
	if err != nil {
		if errors.Is(err, topology.ErrDataUnavailable) {
			return h.finish(ctx, log, rec, model.OutcomeNoData, err), nil
		}
		return rec, err
	}
	h.opts.metrics.SetSnapshotSize(g.NodeCount(), g.EdgeCount())

	primary, primaryMetrics, err := routing.ShortestPath(g, rec.Source, rec.Target)
	h.opts.metrics.ObservePathSolve(err == nil)
	if err != nil {
		if errors.Is(err, routing.ErrNoPath) {
			return h.finish(ctx, log, rec, model.OutcomeNoPrimaryPath, err), nil
		}
		return rec, fmt.Errorf("solve primary path: %w", err)
	}
	rec.Primary = model.RoutedPath{Path: primary, Metrics: primaryMetrics}

	assessStart := time.Now()
	scores := risk.Assess(g)
	h.opts.metrics.ObserveCentrality(time.Since(assessStart))

	plan, err := planner.Plan(g, primary, scores)
	if err != nil {
		return rec, err
	}
	if !plan.Identified {
		return h.finish(ctx, log, rec, model.OutcomeNoFailureCandidate, nil), nil
	}
	rec.RemovedNode = plan.Riskiest
	rec.RemovedRisk = plan.RiskScore

	if err := ctx.Err(); err != nil {
		return rec, err
	}

	failed := g.WithoutNode(plan.Riskiest)
	if plan.HasBackup() {
		m, err := routing.Evaluate(failed, plan.Backup)
		if err != nil {
			return rec, fmt.Errorf("evaluate backup on failed graph: %w", err)
		}
		rec.Proactive = &model.RoutedPath{Path: plan.Backup, Metrics: m}
	}

	solveStart := time.Now()
	reactive, reactiveMetrics, err := routing.ShortestPath(failed, rec.Source, rec.Target)
	rec.ReactiveSolveDuration = time.Since(solveStart)
	h.opts.metrics.ObserveReactiveResolve(rec.ReactiveSolveDuration)
	h.opts.metrics.ObservePathSolve(err == nil)
	switch {
	case err == nil:
		rec.Reactive = &model.RoutedPath{Path: reactive, Metrics: reactiveMetrics}
	case errors.Is(err, routing.ErrNoPath):
		// failure disconnected the endpoints
	default:
		return rec, fmt.Errorf("solve reactive path: %w", err)
	}

	return h.finish(ctx, log, rec, model.OutcomeCompleted, nil), nil
}

func (h *FailureHarness) finish(ctx context.Context, log logging.Logger, rec model.ComparisonRecord, outcome model.ScenarioOutcome, cause error) model.ComparisonRecord {
	rec.Outcome = outcome
	h.opts.metrics.ObserveScenario(string(outcome))

	if outcome != model.OutcomeCompleted {
		fields := []logging.Field{logging.String("outcome", string(outcome))}
		if cause != nil {
			fields = append(fields, logging.Err(cause))
		}
		log.Info(ctx, "failure scenario skipped", fields...)
		return rec
	}

	fields := []logging.Field{
		logging.Int("source", int(rec.Source)),
		logging.Int("target", int(rec.Target)),
		logging.Float("primary_delay", rec.Primary.Metrics.Weight),
		logging.Int("primary_hops", rec.Primary.Metrics.Hops),
		logging.Int("removed", int(rec.RemovedNode)),
		logging.Float("removed_risk", rec.RemovedRisk),
		logging.Duration("reactive_solve", rec.ReactiveSolveDuration),
	}
	if rec.Proactive != nil {
		fields = append(fields, logging.Float("proactive_delay", rec.Proactive.Metrics.Weight))
	}
	if rec.Reactive != nil {
		fields = append(fields, logging.Float("reactive_delay", rec.Reactive.Metrics.Weight))
	}
	if rec.FellBackToReactive() {
		log.Warn(ctx, "no proactive backup survived; falling back to reactive recovery", fields...)
		return rec
	}
	log.Info(ctx, "failure scenario evaluated", fields...)
	return rec
}

// RunAll executes scenarios in order. Expected shortfalls do not stop the
// run; the first fatal error does, returning the records produced so far.
func (h *FailureHarness) RunAll(ctx context.Context, scenarios []Scenario) ([]model.ComparisonRecord, error) {
	ctx, _ = logging.EnsureRunID(ctx)
	records := make([]model.ComparisonRecord, 0, len(scenarios))
	for i, sc := range scenarios {
		rec, err := h.Run(ctx, sc)
		if err != nil {
			return records, fmt.Errorf("scenario %d (shell %q timeslot %d): %w", i, sc.Shell, sc.Timeslot, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// FailureSummary aggregates a batch of comparison records.
type FailureSummary struct {
	Total     int
	Completed int
	ByOutcome map[model.ScenarioOutcome]int
	// Fallbacks counts completed scenarios without a surviving backup.
	Fallbacks int
	// Disconnected counts completed scenarios where the failure cut the
	// endpoints apart entirely.
	Disconnected int

	MeanReactiveSolve   time.Duration
	MeanPrimaryDelay    float64
	MeanProactiveDelay  float64
	MeanReactiveDelay   float64
	ProactiveDelayCount int
	ReactiveDelayCount  int
}

// Summarize folds records into a FailureSummary.
func Summarize(records []model.ComparisonRecord) FailureSummary {
	s := FailureSummary{ByOutcome: make(map[model.ScenarioOutcome]int)}
	var solve time.Duration
	var primary, proactive, reactive float64
	for _, r := range records {
		s.Total++
		s.ByOutcome[r.Outcome]++
		if r.Outcome != model.OutcomeCompleted {
			continue
		}
		s.Completed++
		primary += r.Primary.Metrics.Weight
		solve += r.ReactiveSolveDuration
		if r.FellBackToReactive() {
			s.Fallbacks++
		}
		if r.Proactive != nil {
			s.ProactiveDelayCount++
			proactive += r.Proactive.Metrics.Weight
		}
		if r.Reactive != nil {
			s.ReactiveDelayCount++
			reactive += r.Reactive.Metrics.Weight
		} else {
			s.Disconnected++
		}
	}
	if n := s.Completed; n > 0 {
		s.MeanReactiveSolve = solve / time.Duration(n)
		s.MeanPrimaryDelay = primary / float64(n)
	}
	if s.ProactiveDelayCount > 0 {
		s.MeanProactiveDelay = proactive / float64(s.ProactiveDelayCount)
	}
	if s.ReactiveDelayCount > 0 {
		s.MeanReactiveDelay = reactive / float64(s.ReactiveDelayCount)
	}
	return s
}
