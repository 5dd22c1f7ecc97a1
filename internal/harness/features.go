package harness

import (
	"context"
	"errors"

	"github.com/signalsfoundry/constellation-resilience/internal/predict"
	"github.com/signalsfoundry/constellation-resilience/internal/topology"
	"github.com/signalsfoundry/constellation-resilience/model"
	"github.com/signalsfoundry/constellation-resilience/timectrl"
)

// ExtractLinkFeatures lists every observed link of shell across rng as
// training rows for a latency predictor. Rows are ordered by timeslot and
// then by link. Slots without data are skipped and counted.
func ExtractLinkFeatures(ctx context.Context, src topology.Source, planes predict.PlaneLookup, shell string, rng timectrl.Range) ([]model.LinkFeature, int, error) {
	var (
		rows    []model.LinkFeature
		skipped int
	)
	for _, slot := range rng.Slots() {
		if err := ctx.Err(); err != nil {
			return rows, skipped, err
		}
		g, err := topology.Load(ctx, src, shell, slot)
		if err != nil {
			if errors.Is(err, topology.ErrDataUnavailable) {
				skipped++
				continue
			}
			return rows, skipped, err
		}
		for _, e := range g.Edges() {
			inter := true
			if planes != nil {
				inter = !planes.SamePlane(shell, e.U, e.V)
			}
			rows = append(rows, model.LinkFeature{
				Timeslot:   slot,
				U:          e.U,
				V:          e.V,
				InterPlane: inter,
				Delay:      e.Weight,
			})
		}
	}
	return rows, skipped, nil
}
