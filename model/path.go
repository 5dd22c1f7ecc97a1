package model

// Path is an ordered sequence of distinct nodes where each consecutive pair is
// linked in the graph the path was computed on.
type Path []NodeID

// Source returns the first node, or 0 for an empty path.
func (p Path) Source() NodeID {
	if len(p) == 0 {
		return 0
	}
	return p[0]
}

// Target returns the last node, or 0 for an empty path.
func (p Path) Target() NodeID {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1]
}

// Hops is the number of links traversed.
func (p Path) Hops() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// Intermediates returns the nodes strictly between source and target.
func (p Path) Intermediates() []NodeID {
	if len(p) < 3 {
		return nil
	}
	return p[1 : len(p)-1]
}

// Contains reports whether id is on the path.
func (p Path) Contains(id NodeID) bool {
	for _, n := range p {
		if n == id {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// PathMetrics summarises a path on a particular graph.
type PathMetrics struct {
	Hops   int
	Weight float64 // cumulative latency in seconds
}

// RoutedPath bundles a path with the metrics it was measured with.
type RoutedPath struct {
	Path    Path
	Metrics PathMetrics
}
