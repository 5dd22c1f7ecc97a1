package core

import (
	"math"

	"github.com/signalsfoundry/constellation-resilience/model"
)

// EarthRadiusKm is the mean Earth radius used for all simple
// geometry calculations (kilometres).
const EarthRadiusKm = 6371.0

// Vec3 is an ECEF-style vector in kilometres.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// SubPoint returns the geocentric latitude/longitude directly beneath an
// ECEF position. The origin maps to (0, 0).
func (v Vec3) SubPoint() model.GeoPoint {
	r := v.Norm()
	if r == 0 {
		return model.GeoPoint{}
	}
	lat := math.Asin(v.Z/r) * 180.0 / math.Pi
	lon := math.Atan2(v.Y, v.X) * 180.0 / math.Pi
	return model.GeoPoint{Latitude: lat, Longitude: lon}
}

// GreatCircleKm returns the haversine distance between two points on a
// sphere of radius EarthRadiusKm.
func GreatCircleKm(a, b model.GeoPoint) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := lat2 - lat1
	dLon := radians(b.Longitude) - radians(a.Longitude)

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	if h > 1 {
		h = 1
	}
	return 2 * math.Asin(math.Sqrt(h)) * EarthRadiusKm
}

// roundMetres rounds a kilometre distance to three decimals. Access
// resolution compares rounded distances so near-equal candidates tie
// deterministically on catalogue order.
func roundMetres(km float64) float64 {
	return math.Round(km*1000) / 1000
}

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }
