// Package routing computes minimum-latency and minimum-hop paths over
// snapshot graphs.
//
// Tie-break rule: when several routes share the minimum cost, the solver
// walks back from the target always through the lowest-numbered
// predecessor that achieves the optimal distance. Results are therefore
// reproducible for a given graph regardless of map iteration order.
//
// The rule is exact for strictly positive weights. Reweighted graphs may
// carry zero-weight links, where equal-distance neighbours could name each
// other as predecessors; there only predecessors settled earlier (by
// distance, then ID) are candidates, which keeps the path simple and the
// result deterministic.
package routing

import (
	"container/heap"
	"fmt"

	"github.com/signalsfoundry/constellation-resilience/internal/topology"
	"github.com/signalsfoundry/constellation-resilience/model"
)

// ShortestPath returns the minimum cumulative-weight path from src to dst
// using Dijkstra's algorithm. Weights must be non-negative.
func ShortestPath(g topology.View, src, dst model.NodeID) (model.Path, model.PathMetrics, error) {
	if err := checkEndpoints(g, src, dst); err != nil {
		return nil, model.PathMetrics{}, err
	}
	if src == dst {
		return model.Path{src}, model.PathMetrics{}, nil
	}

	dist := map[model.NodeID]float64{src: 0}
	prev := make(map[model.NodeID]model.NodeID)
	settled := make(map[model.NodeID]bool)

	pq := &distQueue{{id: src, dist: 0}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(queueItem)
		if settled[cur.id] || cur.dist > dist[cur.id] {
			continue
		}
		settled[cur.id] = true
		if cur.id == dst {
			break
		}

		for _, nbr := range g.Neighbors(cur.id) {
			if settled[nbr.ID] {
				continue
			}
			nd := cur.dist + nbr.Weight
			old, seen := dist[nbr.ID]
			switch {
			case !seen || nd < old:
				dist[nbr.ID] = nd
				prev[nbr.ID] = cur.id
				heap.Push(pq, queueItem{id: nbr.ID, dist: nd})
			case nd == old && cur.id < prev[nbr.ID]:
				prev[nbr.ID] = cur.id
			}
		}
	}

	if !settled[dst] {
		return nil, model.PathMetrics{}, fmt.Errorf("%w: %d -> %d", ErrNoPath, src, dst)
	}

	path := walkBack(prev, src, dst)
	metrics, err := Evaluate(g, path)
	if err != nil {
		return nil, model.PathMetrics{}, err
	}
	return path, metrics, nil
}

// Evaluate measures p on g: hops and the literal sum of its edge weights.
// It fails with ErrNoPath when a node or link of p is absent from g.
func Evaluate(g topology.View, p model.Path) (model.PathMetrics, error) {
	if len(p) == 0 {
		return model.PathMetrics{}, fmt.Errorf("%w: empty path", ErrNoPath)
	}
	for _, id := range p {
		if !g.HasNode(id) {
			return model.PathMetrics{}, fmt.Errorf("%w: node %d", ErrInvalidEndpoint, id)
		}
	}
	var total float64
	for i := 0; i+1 < len(p); i++ {
		w, ok := g.Weight(p[i], p[i+1])
		if !ok {
			return model.PathMetrics{}, fmt.Errorf("%w: link %d-%d missing", ErrNoPath, p[i], p[i+1])
		}
		total += w
	}
	return model.PathMetrics{Hops: len(p) - 1, Weight: total}, nil
}

func checkEndpoints(g topology.View, src, dst model.NodeID) error {
	if !g.HasNode(src) {
		return fmt.Errorf("%w: source %d", ErrInvalidEndpoint, src)
	}
	if !g.HasNode(dst) {
		return fmt.Errorf("%w: target %d", ErrInvalidEndpoint, dst)
	}
	return nil
}

func walkBack(prev map[model.NodeID]model.NodeID, src, dst model.NodeID) model.Path {
	path := model.Path{dst}
	for node := dst; node != src; {
		node = prev[node]
		path = append(path, node)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
