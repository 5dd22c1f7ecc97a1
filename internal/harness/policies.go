package harness

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/constellation-resilience/internal/routing"
	"github.com/signalsfoundry/constellation-resilience/internal/topology"
	"github.com/signalsfoundry/constellation-resilience/model"
)

// ComparePolicies routes one pair of ground users with the latency-optimal
// and the hop-optimal policy on the observed snapshot. Errors from the
// resolver, the source and the solver are returned as is, so callers can
// branch on core.ErrNoAccessNode, topology.ErrDataUnavailable and
// routing.ErrNoPath.
func ComparePolicies(ctx context.Context, src topology.Source, access EndpointResolver, shell string, timeslot int, from, to model.GroundUser) (out model.PolicyComparison, err error) {
	ctx, span := startSpan(ctx, "harness.policies", shell, attribute.Int("timeslot", timeslot))
	defer func() { endSpan(span, err) }()

	a, b, err := access.ResolvePair(shell, from.Location, to.Location, timeslot)
	if err != nil {
		return model.PolicyComparison{}, err
	}
	g, err := topology.Load(ctx, src, shell, timeslot)
	if err != nil {
		return model.PolicyComparison{}, err
	}

	latPath, latMetrics, err := routing.ShortestPath(g, a, b)
	if err != nil {
		return model.PolicyComparison{}, fmt.Errorf("latency policy: %w", err)
	}
	hopPath, hopMetrics, err := routing.LeastHopPath(g, a, b)
	if err != nil {
		return model.PolicyComparison{}, fmt.Errorf("least-hop policy: %w", err)
	}
	return model.PolicyComparison{
		Shell:    shell,
		Timeslot: timeslot,
		Latency:  model.RoutedPath{Path: latPath, Metrics: latMetrics},
		LeastHop: model.RoutedPath{Path: hopPath, Metrics: hopMetrics},
	}, nil
}
