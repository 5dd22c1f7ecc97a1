package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestCollectorRecordsScenarioOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("NewEngineCollector: %v", err)
	}

	collector.ObserveScenario("completed")
	collector.ObserveScenario("completed")
	collector.ObserveScenario("no_data")

	if got := testutil.ToFloat64(collector.Scenarios.WithLabelValues("completed")); got != 2 {
		t.Fatalf("completed scenarios = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Scenarios.WithLabelValues("no_data")); got != 1 {
		t.Fatalf("no_data scenarios = %v, want 1", got)
	}
}

func TestCollectorRecordsDurations(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("NewEngineCollector: %v", err)
	}
	collector.ObserveReactiveResolve(3 * time.Millisecond)
	collector.ObserveCentrality(time.Millisecond)
	collector.ObserveCentrality(2 * time.Millisecond)

	if count := histogramSampleCount(t, reg, "engine_reactive_resolve_duration_seconds", nil); count != 1 {
		t.Fatalf("reactive sample_count = %d, want 1", count)
	}
	if count := histogramSampleCount(t, reg, "engine_centrality_duration_seconds", nil); count != 2 {
		t.Fatalf("centrality sample_count = %d, want 2", count)
	}
}

func TestCollectorReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("first NewEngineCollector: %v", err)
	}
	second, err := NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("second NewEngineCollector: %v", err)
	}
	first.ObservePathSolve(true)
	second.ObservePathSolve(true)
	second.ObservePathSolve(false)

	if got := testutil.ToFloat64(first.PathSolves.WithLabelValues("found")); got != 2 {
		t.Fatalf("shared found counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(first.PathSolves.WithLabelValues("no_path")); got != 1 {
		t.Fatalf("no_path counter = %v, want 1", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *EngineCollector
	c.ObserveScenario("completed")
	c.ObserveReactiveResolve(time.Second)
	c.ObserveCentrality(time.Second)
	c.ObserveStabilitySlot("sampled")
	c.ObservePathSolve(true)
	c.SetSnapshotSize(1, 2)
}

func TestMetricsHandlerExposesEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("NewEngineCollector: %v", err)
	}
	collector.SetSnapshotSize(66, 132)
	collector.ObserveStabilitySlot("sampled")
	collector.ObserveScenario("completed")
	collector.ObservePathSolve(true)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"engine_failure_scenarios_total",
		"engine_stability_slots_total",
		"engine_path_solves_total",
		"engine_snapshot_nodes 66",
		"engine_snapshot_edges 132",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output:\n%s", metric, body)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
