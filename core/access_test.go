package core

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/constellation-resilience/model"
)

type fakeCatalog struct {
	sats   []model.Satellite
	tracks map[model.NodeID]Track
}

func (c *fakeCatalog) Satellites(string) []model.Satellite { return c.sats }

func (c *fakeCatalog) Track(_ string, id model.NodeID) (Track, bool) {
	t, ok := c.tracks[id]
	return t, ok
}

func TestNearestPicksClosestSatellite(t *testing.T) {
	cat := &fakeCatalog{
		sats: []model.Satellite{{ID: 1}, {ID: 2}, {ID: 3}},
		tracks: map[model.NodeID]Track{
			1: SampledTrack{{Latitude: 0, Longitude: 0}, {Latitude: 40, Longitude: 110}},
			2: SampledTrack{{Latitude: 39, Longitude: 116}, {Latitude: 0, Longitude: 0}},
			3: SampledTrack{{Latitude: -30, Longitude: 20}, {Latitude: -30, Longitude: 20}},
		},
	}
	r := NewAccessResolver(cat)
	beijing := model.GeoPoint{Latitude: 39.9, Longitude: 116.41}

	id, dist, err := r.Nearest("shell1", beijing, 1)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if id != 2 {
		t.Fatalf("slot 1 nearest = %d, want 2", id)
	}
	if dist <= 0 || dist > 200 {
		t.Fatalf("distance = %v km, want a short hop", dist)
	}

	id, _, err = r.Nearest("shell1", beijing, 2)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if id != 1 {
		t.Fatalf("slot 2 nearest = %d, want 1", id)
	}
}

func TestNearestTieGoesToCatalogueOrder(t *testing.T) {
	p := model.GeoPoint{Latitude: 10, Longitude: 10}
	cat := &fakeCatalog{
		sats: []model.Satellite{{ID: 9}, {ID: 4}},
		tracks: map[model.NodeID]Track{
			9: SampledTrack{p},
			4: SampledTrack{p},
		},
	}
	id, _, err := NewAccessResolver(cat).Nearest("s", p, 1)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if id != 9 {
		t.Fatalf("tie resolved to %d, want first catalogued 9", id)
	}
}

func TestNearestWithoutPositions(t *testing.T) {
	cat := &fakeCatalog{
		sats:   []model.Satellite{{ID: 1}},
		tracks: map[model.NodeID]Track{1: SampledTrack{{}}},
	}
	_, _, err := NewAccessResolver(cat).Nearest("s", model.GeoPoint{}, 5)
	if !errors.Is(err, ErrNoAccessNode) {
		t.Fatalf("err = %v, want ErrNoAccessNode", err)
	}
}

func TestResolvePair(t *testing.T) {
	cat := &fakeCatalog{
		sats: []model.Satellite{{ID: 1}, {ID: 2}},
		tracks: map[model.NodeID]Track{
			1: SampledTrack{{Latitude: 21, Longitude: 105}},
			2: SampledTrack{{Latitude: -22, Longitude: -43}},
		},
	}
	src, dst, err := NewAccessResolver(cat).ResolvePair("s",
		model.GeoPoint{Latitude: 21.02, Longitude: 105.84},
		model.GeoPoint{Latitude: -22.91, Longitude: -43.17}, 1)
	if err != nil {
		t.Fatalf("ResolvePair: %v", err)
	}
	if src != 1 || dst != 2 {
		t.Fatalf("pair = %d,%d, want 1,2", src, dst)
	}
}
