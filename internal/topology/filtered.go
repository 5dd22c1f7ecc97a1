package topology

import "github.com/signalsfoundry/constellation-resilience/model"

// Filtered is a node-removed view over an immutable Graph. It models failed
// satellites without copying or mutating the snapshot, so one base graph can
// back several independent failure scenarios.
type Filtered struct {
	base    *Graph
	removed map[model.NodeID]struct{}
}

// Base returns the underlying snapshot.
func (f *Filtered) Base() *Graph { return f.base }

// Removed reports whether id is hidden by this view.
func (f *Filtered) Removed(id model.NodeID) bool {
	_, ok := f.removed[id]
	return ok
}

// WithoutNode returns a new view that additionally hides id.
func (f *Filtered) WithoutNode(id model.NodeID) *Filtered {
	removed := make(map[model.NodeID]struct{}, len(f.removed)+1)
	for k := range f.removed {
		removed[k] = struct{}{}
	}
	removed[id] = struct{}{}
	return &Filtered{base: f.base, removed: removed}
}

func (f *Filtered) Nodes() []model.NodeID {
	out := make([]model.NodeID, 0, len(f.base.nodes))
	for _, id := range f.base.nodes {
		if !f.Removed(id) {
			out = append(out, id)
		}
	}
	return out
}

func (f *Filtered) HasNode(id model.NodeID) bool {
	return !f.Removed(id) && f.base.HasNode(id)
}

func (f *Filtered) Neighbors(id model.NodeID) []Neighbor {
	if f.Removed(id) {
		return nil
	}
	nbrs := f.base.Neighbors(id)
	out := make([]Neighbor, 0, len(nbrs))
	for _, n := range nbrs {
		if !f.Removed(n.ID) {
			out = append(out, n)
		}
	}
	return out
}

func (f *Filtered) Weight(u, v model.NodeID) (float64, bool) {
	if f.Removed(u) || f.Removed(v) {
		return 0, false
	}
	return f.base.Weight(u, v)
}
