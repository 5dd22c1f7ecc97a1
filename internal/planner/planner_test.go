package planner

import (
	"testing"

	"github.com/signalsfoundry/constellation-resilience/internal/risk"
	"github.com/signalsfoundry/constellation-resilience/internal/routing"
	"github.com/signalsfoundry/constellation-resilience/internal/topology"
	"github.com/signalsfoundry/constellation-resilience/model"
)

func build(t *testing.T, n int, links [][3]float64) *topology.Graph {
	t.Helper()
	m := topology.NewMatrix(n)
	for _, l := range links {
		m.SetLink(int(l[0]), int(l[1]), l[2])
	}
	g, err := topology.Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func diamond(t *testing.T) *topology.Graph {
	return build(t, 4, [][3]float64{{1, 2, 1}, {2, 3, 1}, {1, 3, 5}, {3, 4, 1}, {2, 4, 5}})
}

func TestPlanDiamondRemovesFirstOfTiedNodes(t *testing.T) {
	g := diamond(t)
	primary, _, err := routing.ShortestPath(g, 1, 4)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	res, err := Plan(g, primary, risk.Assess(g))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	// B(2) and C(3) tie at 2/3; B comes first on [1 2 3 4].
	if !res.Identified || res.Riskiest != 2 {
		t.Fatalf("riskiest = %d (identified %v), want 2", res.Riskiest, res.Identified)
	}
	if !res.HasBackup() {
		t.Fatalf("expected a backup path")
	}
	if res.Backup.Contains(2) {
		t.Fatalf("backup %v goes through the removed node", res.Backup)
	}
	if res.BackupMetrics.Weight != 6 {
		t.Fatalf("backup weight = %v, want 6", res.BackupMetrics.Weight)
	}
	if !g.HasNode(2) {
		t.Fatalf("planning mutated the snapshot")
	}
}

func TestPlanSingleEdgeNeedsNoBackup(t *testing.T) {
	g := build(t, 2, [][3]float64{{1, 2, 2}})
	primary, _, err := routing.ShortestPath(g, 1, 2)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	res, err := Plan(g, primary, risk.Assess(g))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Identified || res.Backup != nil {
		t.Fatalf("res = %+v, want no riskiest node and no backup", res)
	}
}

func TestPlanReportsMissingBackup(t *testing.T) {
	// Cut vertex 2 on a chain.
	g := build(t, 3, [][3]float64{{1, 2, 1}, {2, 3, 1}})
	res, err := Plan(g, model.Path{1, 2, 3}, risk.Assess(g))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !res.Identified || res.Riskiest != 2 {
		t.Fatalf("riskiest = %d, want 2", res.Riskiest)
	}
	if res.HasBackup() {
		t.Fatalf("expected no backup, got %v", res.Backup)
	}
}

func TestRiskiestIntermediateIgnoresEndpoints(t *testing.T) {
	scores := risk.Scores{1: 0.9, 2: 0.1, 3: 0.3, 4: 0.95}
	id, score, ok := RiskiestIntermediate(model.Path{1, 2, 3, 4}, scores)
	if !ok || id != 3 || score != 0.3 {
		t.Fatalf("got %d %v %v, want 3 0.3 true", id, score, ok)
	}
}

func TestRiskiestIntermediateFirstOccurrenceWins(t *testing.T) {
	scores := risk.Scores{7: 0.4, 5: 0.4, 9: 0.1}
	id, _, ok := RiskiestIntermediate(model.Path{1, 7, 5, 9, 2}, scores)
	if !ok || id != 7 {
		t.Fatalf("got %d, want 7 (first of the tied nodes)", id)
	}
}

func TestRiskiestIntermediateMissingScoresCountAsZero(t *testing.T) {
	id, score, ok := RiskiestIntermediate(model.Path{1, 5, 6, 2}, risk.Scores{})
	if !ok || id != 5 || score != 0 {
		t.Fatalf("got %d %v %v, want 5 0 true", id, score, ok)
	}
}

func TestPlanOnFilteredView(t *testing.T) {
	g := build(t, 5, [][3]float64{{1, 2, 1}, {2, 3, 1}, {3, 4, 1}, {1, 5, 3}, {5, 4, 3}, {1, 3, 4}})
	view := g.WithoutNode(5)
	primary, _, err := routing.ShortestPath(view, 1, 4)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	res, err := Plan(view, primary, risk.Assess(view))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Backup.Contains(5) {
		t.Fatalf("backup %v uses a node hidden by the parent view", res.Backup)
	}
}
