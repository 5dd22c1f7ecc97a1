package model

import "strconv"

// NodeID identifies a satellite within one shell. Identifiers start at 1;
// they are the only continuity between timeslots.
type NodeID int

func (id NodeID) String() string {
	return "satellite_" + strconv.Itoa(int(id))
}

// GeoPoint is a geodetic position in degrees.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// GroundUser is a named ground endpoint that reaches the constellation
// through its nearest satellite.
type GroundUser struct {
	Name     string
	Location GeoPoint
}

// Satellite represents one constellation member. PlaneID groups satellites
// sharing an orbital plane inside a shell.
type Satellite struct {
	ID      NodeID
	PlaneID int
	Shell   string

	NoradID uint32 // optional; set when the track is TLE-based
}
