package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/constellation-resilience/model"
)

// ErrNoAccessNode means no satellite in the shell has a position for the slot.
var ErrNoAccessNode = errors.New("core: no access satellite")

// Catalog lists the satellites of a shell in a stable order and exposes
// their tracks.
type Catalog interface {
	Satellites(shell string) []model.Satellite
	Track(shell string, id model.NodeID) (Track, bool)
}

// AccessResolver picks the satellite nearest to a ground point.
type AccessResolver struct {
	catalog Catalog
}

// NewAccessResolver returns a resolver backed by catalog.
func NewAccessResolver(catalog Catalog) *AccessResolver {
	return &AccessResolver{catalog: catalog}
}

// Nearest returns the satellite of shell whose sub-satellite point at slot
// is closest to point by great-circle distance, with that distance in km.
// Distances are compared after rounding to metres; the first satellite in
// catalogue order wins a tie.
func (r *AccessResolver) Nearest(shell string, point model.GeoPoint, slot int) (model.NodeID, float64, error) {
	if r == nil || r.catalog == nil {
		return 0, 0, fmt.Errorf("%w: no catalogue", ErrNoAccessNode)
	}
	var (
		best     model.NodeID
		bestDist = math.Inf(1)
		found    bool
	)
	for _, sat := range r.catalog.Satellites(shell) {
		track, ok := r.catalog.Track(shell, sat.ID)
		if !ok {
			continue
		}
		pos, ok := track.PositionAt(slot)
		if !ok {
			continue
		}
		d := roundMetres(GreatCircleKm(point, pos))
		if d < bestDist {
			best, bestDist, found = sat.ID, d, true
		}
	}
	if !found {
		return 0, 0, fmt.Errorf("%w: shell %q timeslot %d", ErrNoAccessNode, shell, slot)
	}
	return best, bestDist, nil
}

// ResolvePair resolves access satellites for both ends of a route.
func (r *AccessResolver) ResolvePair(shell string, src, dst model.GeoPoint, slot int) (model.NodeID, model.NodeID, error) {
	a, _, err := r.Nearest(shell, src, slot)
	if err != nil {
		return 0, 0, err
	}
	b, _, err := r.Nearest(shell, dst, slot)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
