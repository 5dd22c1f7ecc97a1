package routing

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPath means source and target are disconnected in the graph.
	ErrNoPath = errors.New("routing: no path exists")

	// ErrInvalidEndpoint means an endpoint is not in the graph, for example a
	// failed satellite. It matches ErrNoPath under errors.Is so callers that
	// only care about reachability can branch once.
	ErrInvalidEndpoint = fmt.Errorf("%w: endpoint not in graph", ErrNoPath)
)
