package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EngineCollector bundles Prometheus metrics for the failure and stability
// harnesses and exposes them over HTTP.
type EngineCollector struct {
	gatherer prometheus.Gatherer

	Scenarios          *prometheus.CounterVec
	ReactiveResolve    prometheus.Histogram
	CentralityDuration prometheus.Histogram
	StabilitySlots     *prometheus.CounterVec
	PathSolves         *prometheus.CounterVec

	GraphNodes prometheus.Gauge
	GraphEdges prometheus.Gauge
}

// NewEngineCollector registers engine metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewEngineCollector(reg prometheus.Registerer) (*EngineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	scenarios, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_failure_scenarios_total",
		Help: "Failure scenarios evaluated, labeled by outcome.",
	}, []string{"outcome"}), "engine_failure_scenarios_total")
	if err != nil {
		return nil, err
	}

	reactive, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "engine_reactive_resolve_duration_seconds",
		Help:    "Wall-clock cost of re-solving a route after a node failure.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}), "engine_reactive_resolve_duration_seconds")
	if err != nil {
		return nil, err
	}

	centrality, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "engine_centrality_duration_seconds",
		Help:    "Duration of weighted betweenness computations.",
		Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}), "engine_centrality_duration_seconds")
	if err != nil {
		return nil, err
	}

	slots, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_stability_slots_total",
		Help: "Timeslots visited by stability runs, labeled by status.",
	}, []string{"status"}), "engine_stability_slots_total")
	if err != nil {
		return nil, err
	}

	solves, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_path_solves_total",
		Help: "Shortest-path solves, labeled by result.",
	}, []string{"result"}), "engine_path_solves_total")
	if err != nil {
		return nil, err
	}

	nodes, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_snapshot_nodes",
		Help: "Node count of the most recently loaded snapshot graph.",
	}), "engine_snapshot_nodes")
	if err != nil {
		return nil, err
	}
	edges, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_snapshot_edges",
		Help: "Edge count of the most recently loaded snapshot graph.",
	}), "engine_snapshot_edges")
	if err != nil {
		return nil, err
	}

	return &EngineCollector{
		gatherer:           gatherer,
		Scenarios:          scenarios,
		ReactiveResolve:    reactive,
		CentralityDuration: centrality,
		StabilitySlots:     slots,
		PathSolves:         solves,
		GraphNodes:         nodes,
		GraphEdges:         edges,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *EngineCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveScenario counts a finished failure scenario.
func (c *EngineCollector) ObserveScenario(outcome string) {
	if c == nil || c.Scenarios == nil {
		return
	}
	c.Scenarios.WithLabelValues(outcome).Inc()
}

// ObserveReactiveResolve records the reactive re-solve duration.
func (c *EngineCollector) ObserveReactiveResolve(d time.Duration) {
	if c == nil || c.ReactiveResolve == nil {
		return
	}
	c.ReactiveResolve.Observe(d.Seconds())
}

// ObserveCentrality records how long a risk assessment took.
func (c *EngineCollector) ObserveCentrality(d time.Duration) {
	if c == nil || c.CentralityDuration == nil {
		return
	}
	c.CentralityDuration.Observe(d.Seconds())
}

// ObserveStabilitySlot counts a stability timeslot by status.
func (c *EngineCollector) ObserveStabilitySlot(status string) {
	if c == nil || c.StabilitySlots == nil {
		return
	}
	c.StabilitySlots.WithLabelValues(status).Inc()
}

// ObservePathSolve counts a solver call.
func (c *EngineCollector) ObservePathSolve(found bool) {
	if c == nil || c.PathSolves == nil {
		return
	}
	result := "found"
	if !found {
		result = "no_path"
	}
	c.PathSolves.WithLabelValues(result).Inc()
}

// SetSnapshotSize updates the snapshot gauges.
func (c *EngineCollector) SetSnapshotSize(nodes, edges int) {
	if c == nil {
		return
	}
	if c.GraphNodes != nil {
		c.GraphNodes.Set(float64(nodes))
	}
	if c.GraphEdges != nil {
		c.GraphEdges.Set(float64(edges))
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
