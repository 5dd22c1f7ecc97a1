// Package predict supplies model-predicted link latencies. A predictor
// sees a link, its timeslot and whether both ends share an orbital plane,
// and returns the latency it expects for that link.
package predict

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/constellation-resilience/internal/topology"
	"github.com/signalsfoundry/constellation-resilience/model"
)

// ErrInvalidPrediction marks a prediction that cannot be used as a weight.
var ErrInvalidPrediction = fmt.Errorf("predict: %w", topology.ErrInvalidWeight)

// Features is the input of a prediction.
type Features struct {
	U, V      model.NodeID
	Timeslot  int
	SamePlane bool
}

// Predictor returns the expected latency of a link.
type Predictor interface {
	Predict(f Features) (float64, error)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(f Features) (float64, error)

func (f PredictorFunc) Predict(in Features) (float64, error) { return f(in) }

// PlaneLookup answers whether two satellites of a shell share an orbital plane.
type PlaneLookup interface {
	SamePlane(shell string, u, v model.NodeID) bool
}

// Weigher binds a predictor to a shell so it can reweight snapshot graphs.
// A nil planes lookup treats every link as inter-plane.
func Weigher(p Predictor, planes PlaneLookup, shell string) topology.Weigher {
	return topology.WeigherFunc(func(l topology.Link) (float64, error) {
		f := Features{U: l.U, V: l.V, Timeslot: l.Timeslot}
		if planes != nil {
			f.SamePlane = planes.SamePlane(shell, l.U, l.V)
		}
		w, err := p.Predict(f)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return 0, fmt.Errorf("%w: %v for link %d-%d at timeslot %d", ErrInvalidPrediction, w, l.U, l.V, l.Timeslot)
		}
		return w, nil
	})
}

// Coefficients of one link class: latency = Intercept + Slope*timeslot.
type Coefficients struct {
	Intercept float64 `yaml:"intercept"`
	Slope     float64 `yaml:"slope"`
}

func (c Coefficients) at(slot int) float64 { return c.Intercept + c.Slope*float64(slot) }

// LinearModel predicts latency from the timeslot, separately for
// intra-plane and inter-plane links.
type LinearModel struct {
	IntraPlane Coefficients `yaml:"intra_plane"`
	InterPlane Coefficients `yaml:"inter_plane"`
}

// Predict implements Predictor.
func (m LinearModel) Predict(f Features) (float64, error) {
	if f.SamePlane {
		return m.IntraPlane.at(f.Timeslot), nil
	}
	return m.InterPlane.at(f.Timeslot), nil
}

// LoadModel decodes a LinearModel from YAML.
func LoadModel(r io.Reader) (LinearModel, error) {
	var m LinearModel
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return LinearModel{}, fmt.Errorf("predict: model is empty")
		}
		return LinearModel{}, fmt.Errorf("predict: decode model: %w", err)
	}
	return m, nil
}

// LoadModelFile reads a LinearModel from path.
func LoadModelFile(path string) (LinearModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return LinearModel{}, fmt.Errorf("predict: open model: %w", err)
	}
	defer f.Close()
	return LoadModel(f)
}

// Save encodes the model as YAML.
func (m LinearModel) Save(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("predict: encode model: %w", err)
	}
	return enc.Close()
}
