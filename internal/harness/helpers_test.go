package harness

import (
	"github.com/signalsfoundry/constellation-resilience/internal/topology"
	"github.com/signalsfoundry/constellation-resilience/model"
)

const testShell = "shell1"

type resolverFunc func(shell string, src, dst model.GeoPoint, slot int) (model.NodeID, model.NodeID, error)

func (f resolverFunc) ResolvePair(shell string, src, dst model.GeoPoint, slot int) (model.NodeID, model.NodeID, error) {
	return f(shell, src, dst, slot)
}

type planeMap map[model.NodeID]int

func (p planeMap) SamePlane(_ string, u, v model.NodeID) bool {
	pu, ok1 := p[u]
	pv, ok2 := p[v]
	return ok1 && ok2 && pu == pv
}

type link struct {
	a, b int
	w    float64
}

func matrixOf(n int, links ...link) topology.Matrix {
	m := topology.NewMatrix(n)
	for _, l := range links {
		m.SetLink(l.a, l.b, l.w)
	}
	return m
}

// diamondMatrix is A=1, B=2, C=3, D=4 with A-B:1, B-C:1, A-C:5, C-D:1, B-D:5.
func diamondMatrix() topology.Matrix {
	return matrixOf(4,
		link{1, 2, 1}, link{2, 3, 1}, link{1, 3, 5}, link{3, 4, 1}, link{2, 4, 5},
	)
}
