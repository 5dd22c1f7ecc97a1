package predict

import (
	"errors"

	"github.com/signalsfoundry/constellation-resilience/model"
)

// ErrInsufficientData is returned when a link class has too few distinct
// timeslots to fit a line.
var ErrInsufficientData = errors.New("predict: insufficient training data")

type accumulator struct {
	n, sx, sy, sxx, sxy float64
}

func (a *accumulator) add(x, y float64) {
	a.n++
	a.sx += x
	a.sy += y
	a.sxx += x * x
	a.sxy += x * y
}

func (a accumulator) fit() (Coefficients, bool) {
	if a.n == 0 {
		return Coefficients{}, false
	}
	den := a.n*a.sxx - a.sx*a.sx
	if den == 0 {
		// A single distinct timeslot: fall back to the mean.
		return Coefficients{Intercept: a.sy / a.n}, true
	}
	slope := (a.n*a.sxy - a.sx*a.sy) / den
	return Coefficients{Intercept: (a.sy - slope*a.sx) / a.n, Slope: slope}, true
}

// Fit estimates a LinearModel from link observations by ordinary least
// squares, one line per link class. Both classes must be represented.
func Fit(features []model.LinkFeature) (LinearModel, error) {
	var intra, inter accumulator
	for _, f := range features {
		if f.InterPlane {
			inter.add(float64(f.Timeslot), f.Delay)
		} else {
			intra.add(float64(f.Timeslot), f.Delay)
		}
	}
	ic, ok := intra.fit()
	if !ok {
		return LinearModel{}, errors.Join(ErrInsufficientData, errors.New("no intra-plane links"))
	}
	xc, ok := inter.fit()
	if !ok {
		return LinearModel{}, errors.Join(ErrInsufficientData, errors.New("no inter-plane links"))
	}
	return LinearModel{IntraPlane: ic, InterPlane: xc}, nil
}
