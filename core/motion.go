package core

import (
	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/constellation-resilience/model"
	"github.com/signalsfoundry/constellation-resilience/timectrl"
)

// Track yields a satellite's sub-satellite point per timeslot.
type Track interface {
	PositionAt(slot int) (model.GeoPoint, bool)
}

// SampledTrack is a precomputed ground track; element t-1 holds slot t.
type SampledTrack []model.GeoPoint

// PositionAt returns the sampled point for slot, if recorded.
func (s SampledTrack) PositionAt(slot int) (model.GeoPoint, bool) {
	if slot < 1 || slot > len(s) {
		return model.GeoPoint{}, false
	}
	return s[slot-1], true
}

// SGP4Track propagates a TLE with SGP4 to the start of each timeslot.
type SGP4Track struct {
	sat      satellite.Satellite
	timeline timectrl.Timeline
}

// NewSGP4Track constructs a track from TLE lines on the given timeline.
func NewSGP4Track(line1, line2 string, timeline timectrl.Timeline) *SGP4Track {
	return &SGP4Track{
		sat:      satellite.TLEToSat(line1, line2, satellite.GravityWGS72),
		timeline: timeline,
	}
}

// PositionAt propagates to the slot's instant and projects the ECEF
// position onto the ground. Slots before 1 have no position.
func (m *SGP4Track) PositionAt(slot int) (model.GeoPoint, bool) {
	if slot < 1 {
		return model.GeoPoint{}, false
	}
	simTime := m.timeline.TimeAt(slot)
	year, month, day := simTime.Date()
	hour, min, sec := simTime.Clock()

	posECI, _ := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	pos := Vec3{X: posECEF.X, Y: posECEF.Y, Z: posECEF.Z}
	if pos.Norm() == 0 {
		// go-satellite reports propagation errors as a zero vector
		return model.GeoPoint{}, false
	}
	return pos.SubPoint(), true
}
