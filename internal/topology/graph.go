package topology

import (
	"sort"

	"github.com/signalsfoundry/constellation-resilience/model"
)

// Neighbor is one adjacency entry.
type Neighbor struct {
	ID     model.NodeID
	Weight float64
}

// Edge is an undirected link, stored with U < V.
type Edge struct {
	U, V   model.NodeID
	Weight float64
}

// View is the read-only graph surface the solver, risk assessor and planner
// work against. Nodes and Neighbors are returned in ascending ID order.
type View interface {
	Nodes() []model.NodeID
	HasNode(id model.NodeID) bool
	Neighbors(id model.NodeID) []Neighbor
	Weight(u, v model.NodeID) (float64, bool)
}

type edgeKey struct{ u, v model.NodeID }

func keyOf(a, b model.NodeID) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// Graph is an immutable snapshot of one (shell, timeslot). Derive working
// copies with WithoutNode or Reweighted instead of mutating it.
type Graph struct {
	shell    string
	timeslot int

	nodes   []model.NodeID
	adj     map[model.NodeID][]Neighbor
	weights map[edgeKey]float64
}

func newGraph() *Graph {
	return &Graph{
		adj:     make(map[model.NodeID][]Neighbor),
		weights: make(map[edgeKey]float64),
	}
}

// addEdge inserts an undirected edge; self-loops and repeats are ignored.
func (g *Graph) addEdge(a, b model.NodeID, w float64) {
	if a == b {
		return
	}
	k := keyOf(a, b)
	if _, exists := g.weights[k]; exists {
		return
	}
	g.weights[k] = w
	g.adj[a] = append(g.adj[a], Neighbor{ID: b, Weight: w})
	g.adj[b] = append(g.adj[b], Neighbor{ID: a, Weight: w})
}

// seal sorts adjacency lists and the node list for deterministic iteration.
func (g *Graph) seal() {
	g.nodes = make([]model.NodeID, 0, len(g.adj))
	for id, nbrs := range g.adj {
		g.nodes = append(g.nodes, id)
		sort.Slice(nbrs, func(i, j int) bool { return nbrs[i].ID < nbrs[j].ID })
	}
	sort.Slice(g.nodes, func(i, j int) bool { return g.nodes[i] < g.nodes[j] })
}

// Shell returns the shell this snapshot belongs to (empty when built directly).
func (g *Graph) Shell() string { return g.shell }

// Timeslot returns the timeslot this snapshot belongs to (0 when built directly).
func (g *Graph) Timeslot() int { return g.timeslot }

// Nodes returns node IDs in ascending order. The slice must not be modified.
func (g *Graph) Nodes() []model.NodeID { return g.nodes }

func (g *Graph) HasNode(id model.NodeID) bool {
	_, ok := g.adj[id]
	return ok
}

// Neighbors returns the adjacency of id in ascending order. The slice must
// not be modified.
func (g *Graph) Neighbors(id model.NodeID) []Neighbor { return g.adj[id] }

func (g *Graph) Weight(u, v model.NodeID) (float64, bool) {
	w, ok := g.weights[keyOf(u, v)]
	return w, ok
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return len(g.weights) }

// Edges returns every edge sorted by (U, V).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.weights))
	for k, w := range g.weights {
		out = append(out, Edge{U: k.u, V: k.v, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].U != out[j].U {
			return out[i].U < out[j].U
		}
		return out[i].V < out[j].V
	})
	return out
}

// WithoutNode returns a view of g with id and its incident edges hidden.
// g itself is left untouched.
func (g *Graph) WithoutNode(id model.NodeID) *Filtered {
	return &Filtered{base: g, removed: map[model.NodeID]struct{}{id: {}}}
}

// Reweighted returns a copy of g with every edge weight replaced by w. The
// link set is unchanged.
func (g *Graph) Reweighted(w Weigher) (*Graph, error) {
	out := newGraph()
	out.shell, out.timeslot = g.shell, g.timeslot
	for _, e := range g.Edges() {
		weight, err := weigh(w, Link{U: e.U, V: e.V, Observed: e.Weight, Timeslot: g.timeslot})
		if err != nil {
			return nil, err
		}
		out.addEdge(e.U, e.V, weight)
	}
	out.seal()
	return out, nil
}
