package kb

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/constellation-resilience/core"
	"github.com/signalsfoundry/constellation-resilience/model"
	"github.com/signalsfoundry/constellation-resilience/timectrl"
)

// CatalogFile is the on-disk description of one or more shells.
type CatalogFile struct {
	Shells []ShellSpec `yaml:"shells" validate:"required,min=1,dive"`
}

// ShellSpec lists the satellites of one shell.
type ShellSpec struct {
	Name       string          `yaml:"name" validate:"required"`
	Satellites []SatelliteSpec `yaml:"satellites" validate:"required,min=1,dive"`
}

// SatelliteSpec describes a satellite and how to obtain its ground track:
// either two TLE lines propagated with SGP4, or a sampled track with one
// [lat, lon] pair per timeslot.
type SatelliteSpec struct {
	ID    int          `yaml:"id" validate:"required,gt=0"`
	Plane int          `yaml:"plane" validate:"gte=0"`
	Norad uint32       `yaml:"norad"`
	TLE   []string     `yaml:"tle" validate:"omitempty,len=2"`
	Track [][2]float64 `yaml:"track"`
}

var catalogValidator = validator.New()

// LoadCatalogFile reads a catalogue from path into kb.
func LoadCatalogFile(kb *KnowledgeBase, path string, timeline timectrl.Timeline) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalogue: %w", err)
	}
	defer f.Close()
	return LoadCatalog(kb, f, timeline)
}

// LoadCatalog decodes a YAML catalogue and registers every shell and
// satellite in kb. TLE-based satellites are propagated on timeline.
func LoadCatalog(kb *KnowledgeBase, r io.Reader, timeline timectrl.Timeline) error {
	var file CatalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("catalogue is empty")
		}
		return fmt.Errorf("decode catalogue: %w", err)
	}
	if err := catalogValidator.Struct(file); err != nil {
		return fmt.Errorf("validate catalogue: %w", err)
	}

	for _, sh := range file.Shells {
		if err := kb.AddShell(sh.Name); err != nil {
			return err
		}
		for _, entry := range sh.Satellites {
			track, err := entry.track(timeline)
			if err != nil {
				return fmt.Errorf("shell %q satellite %d: %w", sh.Name, entry.ID, err)
			}
			sat := model.Satellite{
				ID:      model.NodeID(entry.ID),
				PlaneID: entry.Plane,
				Shell:   sh.Name,
				NoradID: entry.Norad,
			}
			if err := kb.AddSatellite(sat, track); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s SatelliteSpec) track(timeline timectrl.Timeline) (core.Track, error) {
	switch {
	case len(s.TLE) == 2 && len(s.Track) > 0:
		return nil, fmt.Errorf("both tle and track given")
	case len(s.TLE) == 2:
		if timeline.Step <= 0 {
			return nil, fmt.Errorf("tle requires a timeline")
		}
		return core.NewSGP4Track(s.TLE[0], s.TLE[1], timeline), nil
	case len(s.Track) > 0:
		track := make(core.SampledTrack, len(s.Track))
		for i, p := range s.Track {
			track[i] = model.GeoPoint{Latitude: p[0], Longitude: p[1]}
		}
		return track, nil
	default:
		// Satellites without a track still route, they just never serve
		// as access nodes.
		return nil, nil
	}
}
