package predict

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/constellation-resilience/internal/topology"
	"github.com/signalsfoundry/constellation-resilience/model"
)

type planes map[model.NodeID]int

func (p planes) SamePlane(_ string, u, v model.NodeID) bool {
	pu, ok1 := p[u]
	pv, ok2 := p[v]
	return ok1 && ok2 && pu == pv
}

func TestLinearModelPredict(t *testing.T) {
	m := LinearModel{
		IntraPlane: Coefficients{Intercept: 10, Slope: 0.5},
		InterPlane: Coefficients{Intercept: 20, Slope: -1},
	}
	got, err := m.Predict(Features{Timeslot: 4, SamePlane: true})
	require.NoError(t, err)
	assert.Equal(t, 12.0, got)

	got, err = m.Predict(Features{Timeslot: 4})
	require.NoError(t, err)
	assert.Equal(t, 16.0, got)
}

func TestWeigherUsesPlaneAndTimeslot(t *testing.T) {
	m := LinearModel{
		IntraPlane: Coefficients{Intercept: 1},
		InterPlane: Coefficients{Intercept: 5, Slope: 1},
	}
	mat := topology.NewMatrix(3)
	mat.SetLink(1, 2, 40)
	mat.SetLink(2, 3, 40)
	g, err := topology.Build(mat)
	require.NoError(t, err)

	w := Weigher(m, planes{1: 0, 2: 0, 3: 1}, "shell1")
	pg, err := g.Reweighted(w)
	require.NoError(t, err)

	intra, ok := pg.Weight(1, 2)
	require.True(t, ok)
	assert.Equal(t, 1.0, intra)

	inter, ok := pg.Weight(2, 3)
	require.True(t, ok)
	// Directly built graphs carry timeslot 0.
	assert.Equal(t, 5.0, inter)
}

func TestWeigherRejectsBadPredictions(t *testing.T) {
	mat := topology.NewMatrix(2)
	mat.SetLink(1, 2, 10)
	g, err := topology.Build(mat)
	require.NoError(t, err)

	for name, v := range map[string]float64{"negative": -1, "nan": math.NaN(), "inf": math.Inf(1)} {
		t.Run(name, func(t *testing.T) {
			p := PredictorFunc(func(Features) (float64, error) { return v, nil })
			_, err := g.Reweighted(Weigher(p, nil, "s"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, topology.ErrInvalidWeight), "got %v", err)
		})
	}
}

func TestLoadAndSaveModel(t *testing.T) {
	doc := "intra_plane:\n  intercept: 3.5\n  slope: 0.25\ninter_plane:\n  intercept: 9\n  slope: 0\n"
	m, err := LoadModel(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 3.5, m.IntraPlane.Intercept)
	assert.Equal(t, 0.25, m.IntraPlane.Slope)
	assert.Equal(t, 9.0, m.InterPlane.Intercept)

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))
	back, err := LoadModel(&buf)
	require.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestLoadModelRejectsUnknownFields(t *testing.T) {
	_, err := LoadModel(strings.NewReader("intra_plane:\n  gradient: 1\n"))
	require.Error(t, err)
	_, err = LoadModel(strings.NewReader(""))
	require.Error(t, err)
}

func TestFitRecoversLines(t *testing.T) {
	var rows []model.LinkFeature
	for slot := 1; slot <= 10; slot++ {
		rows = append(rows,
			model.LinkFeature{Timeslot: slot, U: 1, V: 2, Delay: 4 + 2*float64(slot)},
			model.LinkFeature{Timeslot: slot, U: 2, V: 3, InterPlane: true, Delay: 30 - float64(slot)},
		)
	}
	m, err := Fit(rows)
	require.NoError(t, err)
	assert.InDelta(t, 4, m.IntraPlane.Intercept, 1e-9)
	assert.InDelta(t, 2, m.IntraPlane.Slope, 1e-9)
	assert.InDelta(t, 30, m.InterPlane.Intercept, 1e-9)
	assert.InDelta(t, -1, m.InterPlane.Slope, 1e-9)
}

func TestFitSingleSlotUsesMean(t *testing.T) {
	rows := []model.LinkFeature{
		{Timeslot: 3, Delay: 10},
		{Timeslot: 3, Delay: 20},
		{Timeslot: 3, InterPlane: true, Delay: 7},
	}
	m, err := Fit(rows)
	require.NoError(t, err)
	assert.Equal(t, Coefficients{Intercept: 15}, m.IntraPlane)
	assert.Equal(t, Coefficients{Intercept: 7}, m.InterPlane)
}

func TestFitNeedsBothClasses(t *testing.T) {
	_, err := Fit([]model.LinkFeature{{Timeslot: 1, Delay: 1}})
	require.ErrorIs(t, err, ErrInsufficientData)
}
