package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/constellation-resilience/core"
	"github.com/signalsfoundry/constellation-resilience/internal/matrixstore"
	"github.com/signalsfoundry/constellation-resilience/internal/predict"
	"github.com/signalsfoundry/constellation-resilience/kb"
	"github.com/signalsfoundry/constellation-resilience/model"
	"github.com/signalsfoundry/constellation-resilience/timectrl"
)

// TestEndToEndWithCatalogueAndStore resolves access satellites from ground
// tracks and reads matrices back from badger.
func TestEndToEndWithCatalogueAndStore(t *testing.T) {
	ctx := context.Background()

	hanoi := model.GroundUser{Name: "Hanoi", Location: model.GeoPoint{Latitude: 21.02, Longitude: 105.84}}
	rio := model.GroundUser{Name: "Rio", Location: model.GeoPoint{Latitude: -22.91, Longitude: -43.17}}

	catalog := kb.NewKnowledgeBase()
	require.NoError(t, catalog.AddShell(testShell))
	tracks := map[model.NodeID]core.SampledTrack{
		1: {hanoi.Location, hanoi.Location},
		2: {{Latitude: 0, Longitude: 160}, {Latitude: 0, Longitude: 160}},
		3: {{Latitude: 0, Longitude: -120}, {Latitude: 0, Longitude: -120}},
		4: {rio.Location, rio.Location},
	}
	for id, plane := range map[model.NodeID]int{1: 1, 2: 1, 3: 2, 4: 2} {
		require.NoError(t, catalog.AddSatellite(model.Satellite{ID: id, PlaneID: plane, Shell: testShell}, tracks[id]))
	}

	store, err := matrixstore.Open(matrixstore.InMemoryConfig())
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Put(ctx, testShell, 1, diamondMatrix()))
	require.NoError(t, store.Put(ctx, testShell, 2, diamondMatrix()))

	access := core.NewAccessResolver(catalog)
	failure := NewFailureHarness(store, access)
	rec, err := failure.Run(ctx, Scenario{Shell: testShell, Timeslot: 1, Source: hanoi, Target: rio})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeCompleted, rec.Outcome)
	assert.Equal(t, model.NodeID(1), rec.Source)
	assert.Equal(t, model.NodeID(4), rec.Target)
	assert.Equal(t, model.NodeID(2), rec.RemovedNode)

	// Past the sampled tracks there is no access satellite.
	rec, err = failure.Run(ctx, Scenario{Shell: testShell, Timeslot: 3, Source: hanoi, Target: rio})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNoAccessNode, rec.Outcome)

	stability := NewStabilityHarness(store, access, predict.LinearModel{
		IntraPlane: predict.Coefficients{Intercept: 1},
		InterPlane: predict.Coefficients{Intercept: 1},
	}, catalog)
	report, err := stability.Run(ctx, StabilityRequest{
		Shell:  testShell,
		Range:  timectrl.Range{From: 1, To: 3},
		Source: hanoi,
		Target: rio,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.SampleCount)
	assert.Equal(t, 1, report.Skipped.NoAccessNode)
	assert.Equal(t, 0.0, report.ObservedStdDev)
}
