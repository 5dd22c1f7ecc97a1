package topology

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/constellation-resilience/model"
)

// Source provides per-(shell, timeslot) latency matrices. Implementations
// return an error wrapping ErrDataUnavailable for slots they do not hold.
type Source interface {
	Matrix(ctx context.Context, shell string, timeslot int) (Matrix, error)
}

// Build turns a latency matrix into a snapshot graph with observed weights.
// A link exists for i < j exactly when m[i][j] > 0.
func Build(m Matrix) (*Graph, error) {
	return BuildWeighted(m, Observed)
}

// BuildWeighted builds the link set from m and takes each weight from w.
func BuildWeighted(m Matrix, w Weigher) (*Graph, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	g := newGraph()
	n := len(m)
	for i := 1; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if m[i][j] <= 0 {
				continue
			}
			u, v := model.NodeID(i), model.NodeID(j)
			weight, err := weigh(w, Link{U: u, V: v, Observed: m[i][j]})
			if err != nil {
				return nil, err
			}
			g.addEdge(u, v, weight)
		}
	}
	g.seal()
	return g, nil
}

// Load fetches the matrix for (shell, timeslot) and builds its snapshot.
func Load(ctx context.Context, src Source, shell string, timeslot int) (*Graph, error) {
	if src == nil {
		return nil, unavailable(shell, timeslot)
	}
	m, err := src.Matrix(ctx, shell, timeslot)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, unavailable(shell, timeslot)
	}
	g, err := Build(m)
	if err != nil {
		return nil, fmt.Errorf("shell %q timeslot %d: %w", shell, timeslot, err)
	}
	g.shell, g.timeslot = shell, timeslot
	return g, nil
}
