package routing

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/constellation-resilience/internal/topology"
	"github.com/signalsfoundry/constellation-resilience/model"
)

const (
	nodeA model.NodeID = 1
	nodeB model.NodeID = 2
	nodeC model.NodeID = 3
	nodeD model.NodeID = 4
)

// diamond: A-B:1, B-C:1, A-C:5, C-D:1, B-D:5
func diamond(t *testing.T) *topology.Graph {
	t.Helper()
	m := topology.NewMatrix(4)
	m.SetLink(1, 2, 1)
	m.SetLink(2, 3, 1)
	m.SetLink(1, 3, 5)
	m.SetLink(3, 4, 1)
	m.SetLink(2, 4, 5)
	g, err := topology.Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func samePath(a, b model.Path) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestShortestPathDiamond(t *testing.T) {
	g := diamond(t)
	path, metrics, err := ShortestPath(g, nodeA, nodeD)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if want := (model.Path{nodeA, nodeB, nodeC, nodeD}); !samePath(path, want) {
		t.Fatalf("path = %v, want %v", path, want)
	}
	if metrics.Hops != 3 || metrics.Weight != 3 {
		t.Fatalf("metrics = %+v, want hops 3 weight 3", metrics)
	}
}

func TestShortestPathAfterRemovingB(t *testing.T) {
	g := diamond(t)
	failed := g.WithoutNode(nodeB)

	path, metrics, err := ShortestPath(failed, nodeA, nodeD)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if want := (model.Path{nodeA, nodeC, nodeD}); !samePath(path, want) {
		t.Fatalf("path = %v, want %v", path, want)
	}
	if metrics.Weight != 6 || metrics.Hops != 2 {
		t.Fatalf("metrics = %+v, want weight 6 hops 2", metrics)
	}
}

func TestShortestPathNoPathWhenCutOff(t *testing.T) {
	m := topology.NewMatrix(4)
	m.SetLink(1, 2, 1)
	m.SetLink(2, 3, 1)
	m.SetLink(3, 4, 1)
	m.SetLink(2, 4, 5)
	g, _ := topology.Build(m)

	_, _, err := ShortestPath(g.WithoutNode(nodeB), nodeA, nodeD)
	if !errors.Is(err, ErrNoPath) {
		t.Fatalf("err = %v, want ErrNoPath", err)
	}
}

func TestShortestPathInvalidEndpoint(t *testing.T) {
	g := diamond(t)
	_, _, err := ShortestPath(g, nodeA, 42)
	if !errors.Is(err, ErrInvalidEndpoint) {
		t.Fatalf("err = %v, want ErrInvalidEndpoint", err)
	}
	if !errors.Is(err, ErrNoPath) {
		t.Fatalf("invalid endpoint should also match ErrNoPath")
	}

	_, _, err = ShortestPath(g.WithoutNode(nodeA), nodeA, nodeD)
	if !errors.Is(err, ErrInvalidEndpoint) {
		t.Fatalf("removed source err = %v, want ErrInvalidEndpoint", err)
	}
}

func TestShortestPathSameNode(t *testing.T) {
	g := diamond(t)
	path, metrics, err := ShortestPath(g, nodeC, nodeC)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if len(path) != 1 || metrics.Hops != 0 || metrics.Weight != 0 {
		t.Fatalf("got %v %+v, want single node with zero metrics", path, metrics)
	}
}

func TestShortestPathTieBreakPrefersLowerPredecessor(t *testing.T) {
	// Two equal-cost routes 1-3-4 and 1-2-4 (weight 2 each).
	m := topology.NewMatrix(4)
	m.SetLink(1, 3, 1)
	m.SetLink(3, 4, 1)
	m.SetLink(1, 2, 1)
	m.SetLink(2, 4, 1)
	g, _ := topology.Build(m)

	first, _, err := ShortestPath(g, 1, 4)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if want := (model.Path{1, 2, 4}); !samePath(first, want) {
		t.Fatalf("path = %v, want %v", first, want)
	}
	for i := 0; i < 20; i++ {
		again, _, _ := ShortestPath(g, 1, 4)
		if !samePath(first, again) {
			t.Fatalf("solve %d returned %v, want %v", i, again, first)
		}
	}
}

func TestShortestPathTieBreakFromTargetSide(t *testing.T) {
	// 5 reaches 1 at distance 2 through either 3 or 4; the walk back from 1
	// must go through 3.
	m := topology.NewMatrix(5)
	m.SetLink(5, 4, 1)
	m.SetLink(4, 1, 1)
	m.SetLink(5, 3, 1)
	m.SetLink(3, 1, 1)
	g, _ := topology.Build(m)

	path, _, err := ShortestPath(g, 5, 1)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if want := (model.Path{5, 3, 1}); !samePath(path, want) {
		t.Fatalf("path = %v, want %v", path, want)
	}
}

func TestShortestPathWithZeroWeightLinks(t *testing.T) {
	// 9 reaches 3 at distance 1 directly, and 2 and 5 sit at the same
	// distance behind zero-weight links. The walk back must not pass
	// through 2, which is only reached after 3 settles.
	m := topology.NewMatrix(9)
	m.SetLink(9, 3, 1)
	m.SetLink(9, 5, 1)
	m.SetLink(5, 2, 1)
	m.SetLink(2, 3, 1)
	m.SetLink(3, 4, 1)
	base, _ := topology.Build(m)
	g, err := base.Reweighted(topology.WeigherFunc(func(l topology.Link) (float64, error) {
		if l.U == 2 || l.V == 2 {
			return 0, nil
		}
		return l.Observed, nil
	}))
	if err != nil {
		t.Fatalf("Reweighted: %v", err)
	}

	first, metrics, err := ShortestPath(g, 9, 4)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if want := (model.Path{9, 3, 4}); !samePath(first, want) {
		t.Fatalf("path = %v, want %v", first, want)
	}
	if metrics.Weight != 2 || metrics.Hops != 2 {
		t.Fatalf("metrics = %+v", metrics)
	}
	for i := 0; i < 5; i++ {
		again, _, _ := ShortestPath(g, 9, 4)
		if !samePath(again, first) {
			t.Fatalf("run %d path = %v, want %v", i, again, first)
		}
	}
}

func TestEvaluate(t *testing.T) {
	g := diamond(t)
	metrics, err := Evaluate(g, model.Path{nodeA, nodeC, nodeD})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if metrics.Weight != 6 || metrics.Hops != 2 {
		t.Fatalf("metrics = %+v", metrics)
	}

	if _, err := Evaluate(g, model.Path{nodeA, nodeD}); !errors.Is(err, ErrNoPath) {
		t.Fatalf("missing link err = %v, want ErrNoPath", err)
	}
	if _, err := Evaluate(g.WithoutNode(nodeC), model.Path{nodeA, nodeC, nodeD}); !errors.Is(err, ErrInvalidEndpoint) {
		t.Fatalf("removed node err = %v, want ErrInvalidEndpoint", err)
	}
	if _, err := Evaluate(g, nil); !errors.Is(err, ErrNoPath) {
		t.Fatalf("empty path err = %v, want ErrNoPath", err)
	}
}

func TestLeastHopPath(t *testing.T) {
	g := diamond(t)
	path, metrics, err := LeastHopPath(g, nodeA, nodeD)
	if err != nil {
		t.Fatalf("LeastHopPath: %v", err)
	}
	// A-B-D and A-C-D both have two hops; B is the lower predecessor.
	if want := (model.Path{nodeA, nodeB, nodeD}); !samePath(path, want) {
		t.Fatalf("path = %v, want %v", path, want)
	}
	if metrics.Hops != 2 || metrics.Weight != 6 {
		t.Fatalf("metrics = %+v, want hops 2 weight 6", metrics)
	}

	if _, _, err := LeastHopPath(g.WithoutNode(nodeD), nodeA, nodeD); !errors.Is(err, ErrInvalidEndpoint) {
		t.Fatalf("err = %v, want ErrInvalidEndpoint", err)
	}
}
