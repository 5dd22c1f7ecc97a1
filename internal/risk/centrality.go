// Package risk scores satellites by structural importance in a snapshot.
package risk

import (
	"container/heap"
	"sort"

	"github.com/signalsfoundry/constellation-resilience/internal/topology"
	"github.com/signalsfoundry/constellation-resilience/model"
)

// Scores maps each node of one snapshot to its normalised betweenness. Scores
// from different snapshots are not comparable.
type Scores map[model.NodeID]float64

// Score returns the score of id, or 0 when id was not scored.
func (s Scores) Score(id model.NodeID) float64 { return s[id] }

// Assess computes weighted betweenness centrality for every node of g.
// Shortest paths are measured by cumulative latency, the same notion the
// router uses. The sum over all sources is scaled by 1/((n-1)(n-2)), which
// makes each score the fraction of node pairs (excluding the node itself)
// whose shortest paths pass through it, split evenly among equal-cost paths.
func Assess(g topology.View) Scores {
	nodes := g.Nodes()
	scores := make(Scores, len(nodes))
	for _, id := range nodes {
		scores[id] = 0
	}

	for _, source := range nodes {
		order, preds, sigma := shortestPathDAG(g, source)

		delta := make(map[model.NodeID]float64, len(order))
		for i := len(order) - 1; i >= 0; i-- {
			w := order[i]
			coeff := (1 + delta[w]) / sigma[w]
			for _, v := range preds[w] {
				delta[v] += sigma[v] * coeff
			}
			if w != source {
				scores[w] += delta[w]
			}
		}
	}

	if n := len(nodes); n > 2 {
		scale := 1.0 / float64((n-1)*(n-2))
		for id := range scores {
			scores[id] *= scale
		}
	}
	return scores
}

// shortestPathDAG runs Dijkstra from source and returns nodes in settle
// order, the equal-cost predecessor lists and shortest-path counts.
func shortestPathDAG(g topology.View, source model.NodeID) ([]model.NodeID, map[model.NodeID][]model.NodeID, map[model.NodeID]float64) {
	dist := map[model.NodeID]float64{source: 0}
	sigma := map[model.NodeID]float64{source: 1}
	preds := make(map[model.NodeID][]model.NodeID)
	settled := make(map[model.NodeID]bool)
	order := make([]model.NodeID, 0)

	pq := &settleQueue{{id: source, dist: 0}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(settleItem)
		if settled[cur.id] || cur.dist > dist[cur.id] {
			continue
		}
		settled[cur.id] = true
		order = append(order, cur.id)

		for _, nbr := range g.Neighbors(cur.id) {
			if settled[nbr.ID] {
				continue
			}
			nd := cur.dist + nbr.Weight
			old, seen := dist[nbr.ID]
			switch {
			case !seen || nd < old:
				dist[nbr.ID] = nd
				sigma[nbr.ID] = sigma[cur.id]
				preds[nbr.ID] = []model.NodeID{cur.id}
				heap.Push(pq, settleItem{id: nbr.ID, dist: nd})
			case nd == old:
				sigma[nbr.ID] += sigma[cur.id]
				preds[nbr.ID] = append(preds[nbr.ID], cur.id)
			}
		}
	}
	return order, preds, sigma
}

// Ranked is a node with its score.
type Ranked struct {
	ID    model.NodeID
	Score float64
}

// Top returns the n highest-scoring nodes, score descending then ID
// ascending. n <= 0 returns every node.
func Top(scores Scores, n int) []Ranked {
	out := make([]Ranked, 0, len(scores))
	for id, s := range scores {
		out = append(out, Ranked{ID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

type settleItem struct {
	id   model.NodeID
	dist float64
}

type settleQueue []settleItem

func (q settleQueue) Len() int { return len(q) }

func (q settleQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].id < q[j].id
}

func (q settleQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *settleQueue) Push(x any) { *q = append(*q, x.(settleItem)) }

func (q *settleQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}
