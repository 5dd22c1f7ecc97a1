package routing

import (
	"fmt"
	"slices"

	"github.com/signalsfoundry/constellation-resilience/internal/topology"
	"github.com/signalsfoundry/constellation-resilience/model"
)

// LeastHopPath returns a path with the fewest links from src to dst,
// ignoring latency when choosing the route. Metrics still report the
// latency of the chosen route on g. Frontiers are expanded in ascending ID
// order so the lowest-numbered predecessor wins ties, like ShortestPath.
func LeastHopPath(g topology.View, src, dst model.NodeID) (model.Path, model.PathMetrics, error) {
	if err := checkEndpoints(g, src, dst); err != nil {
		return nil, model.PathMetrics{}, err
	}
	if src == dst {
		return model.Path{src}, model.PathMetrics{}, nil
	}

	prev := make(map[model.NodeID]model.NodeID)
	visited := map[model.NodeID]bool{src: true}
	frontier := []model.NodeID{src}

	for len(frontier) > 0 && !visited[dst] {
		var next []model.NodeID
		for _, cur := range frontier {
			for _, nbr := range g.Neighbors(cur) {
				if visited[nbr.ID] {
					continue
				}
				visited[nbr.ID] = true
				prev[nbr.ID] = cur
				next = append(next, nbr.ID)
			}
		}
		slices.Sort(next)
		frontier = next
	}

	if !visited[dst] {
		return nil, model.PathMetrics{}, fmt.Errorf("%w: %d -> %d", ErrNoPath, src, dst)
	}
	path := walkBack(prev, src, dst)
	metrics, err := Evaluate(g, path)
	if err != nil {
		return nil, model.PathMetrics{}, err
	}
	return path, metrics, nil
}
