package risk

import (
	"math"
	"testing"

	"github.com/signalsfoundry/constellation-resilience/internal/topology"
	"github.com/signalsfoundry/constellation-resilience/model"
)

func buildGraph(t *testing.T, n int, links [][3]float64) *topology.Graph {
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

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-12 }

func TestAssessLineOfThree(t *testing.T) {
	g := buildGraph(t, 3, [][3]float64{{1, 2, 1}, {2, 3, 1}})
	scores := Assess(g)
	if !approx(scores[2], 1.0) {
		t.Fatalf("middle score = %v, want 1", scores[2])
	}
	if scores[1] != 0 || scores[3] != 0 {
		t.Fatalf("endpoint scores = %v,%v, want 0", scores[1], scores[3])
	}
}

func TestAssessStar(t *testing.T) {
	g := buildGraph(t, 5, [][3]float64{{1, 2, 1}, {1, 3, 1}, {1, 4, 1}, {1, 5, 1}})
	scores := Assess(g)
	if !approx(scores[1], 1.0) {
		t.Fatalf("hub score = %v, want 1", scores[1])
	}
	for id := model.NodeID(2); id <= 5; id++ {
		if scores[id] != 0 {
			t.Fatalf("leaf %d score = %v, want 0", id, scores[id])
		}
	}
}

func TestAssessUsesLatencyNotHops(t *testing.T) {
	// The direct 1-3 link is one hop but slower than going through 2.
	g := buildGraph(t, 3, [][3]float64{{1, 2, 1}, {2, 3, 1}, {1, 3, 5}})
	scores := Assess(g)
	if !approx(scores[2], 1.0) {
		t.Fatalf("score of 2 = %v, want 1 with latency-weighted paths", scores[2])
	}
}

func TestAssessSplitsEqualCostPaths(t *testing.T) {
	// Square 1-2-4-3-1 with unit weights: 1->4 has two equal routes.
	g := buildGraph(t, 4, [][3]float64{{1, 2, 1}, {2, 4, 1}, {1, 3, 1}, {3, 4, 1}})
	scores := Assess(g)
	for id := model.NodeID(1); id <= 4; id++ {
		if !approx(scores[id], 1.0/6.0) {
			t.Fatalf("score of %d = %v, want 1/6", id, scores[id])
		}
	}
}

func TestAssessDiamond(t *testing.T) {
	g := buildGraph(t, 4, [][3]float64{{1, 2, 1}, {2, 3, 1}, {1, 3, 5}, {3, 4, 1}, {2, 4, 5}})
	scores := Assess(g)
	if !approx(scores[2], 2.0/3.0) || !approx(scores[3], 2.0/3.0) {
		t.Fatalf("scores = %v, want B=C=2/3", scores)
	}
	if scores[1] != 0 || scores[4] != 0 {
		t.Fatalf("scores = %v, want A=D=0", scores)
	}
}

func TestAssessCoversEveryNode(t *testing.T) {
	g := buildGraph(t, 6, [][3]float64{{1, 2, 1}, {3, 4, 1}, {5, 6, 2}})
	scores := Assess(g)
	if len(scores) != g.NodeCount() {
		t.Fatalf("scored %d nodes, graph has %d", len(scores), g.NodeCount())
	}
	for id, s := range scores {
		if s != 0 {
			t.Fatalf("node %d score = %v, want 0 in a graph of disjoint links", id, s)
		}
	}
}

func TestAssessIsIdempotent(t *testing.T) {
	g := buildGraph(t, 6, [][3]float64{
		{1, 2, 0.3}, {2, 3, 0.2}, {3, 4, 0.7}, {4, 5, 0.1}, {5, 6, 0.4}, {1, 6, 0.9}, {2, 5, 0.5},
	})
	first := Assess(g)
	second := Assess(g)
	for id, s := range first {
		if second[id] != s {
			t.Fatalf("node %d: %v then %v", id, s, second[id])
		}
	}
}

func TestAssessOnFilteredView(t *testing.T) {
	g := buildGraph(t, 3, [][3]float64{{1, 2, 1}, {2, 3, 1}, {1, 3, 5}})
	scores := Assess(g.WithoutNode(2))
	if _, ok := scores[2]; ok {
		t.Fatalf("removed node must not be scored")
	}
	if len(scores) != 2 {
		t.Fatalf("scored %d nodes, want 2", len(scores))
	}
}

func TestTopOrdersByScoreThenID(t *testing.T) {
	ranked := Top(Scores{5: 0.2, 2: 0.5, 7: 0.5, 1: 0}, 3)
	if len(ranked) != 3 {
		t.Fatalf("len = %d, want 3", len(ranked))
	}
	if ranked[0].ID != 2 || ranked[1].ID != 7 || ranked[2].ID != 5 {
		t.Fatalf("ranking = %v", ranked)
	}
	if all := Top(Scores{1: 1, 2: 2}, 0); len(all) != 2 {
		t.Fatalf("n=0 should return every node")
	}
}
