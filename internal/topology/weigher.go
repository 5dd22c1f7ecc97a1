package topology

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/constellation-resilience/model"
)

// Link is the context handed to a Weigher for one edge.
type Link struct {
	U, V     model.NodeID
	Observed float64
	Timeslot int
}

// Weigher supplies the weight of a link. Observed latencies and model
// predictions are interchangeable implementations.
type Weigher interface {
	Weigh(l Link) (float64, error)
}

// WeigherFunc adapts a function to Weigher.
type WeigherFunc func(l Link) (float64, error)

func (f WeigherFunc) Weigh(l Link) (float64, error) { return f(l) }

// Observed keeps the latency reported by the source.
var Observed Weigher = WeigherFunc(func(l Link) (float64, error) { return l.Observed, nil })

func weigh(w Weigher, l Link) (float64, error) {
	if w == nil {
		w = Observed
	}
	v, err := w.Weigh(l)
	if err != nil {
		return 0, fmt.Errorf("weigh %d-%d: %w", l.U, l.V, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %d-%d got %v", ErrInvalidWeight, l.U, l.V, v)
	}
	return v, nil
}
