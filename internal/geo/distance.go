// Package geo computes great-circle distances on a spherical Earth.
package geo

import "math"

const EarthRadiusKM = 6371.0

// DistanceKM is the haversine distance between two points in kilometers.
// Coordinates must already be validated; out-of-range input is not handled.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLon := deg2rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// rounding can push a slightly past 1 for antipodal points
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKM * c
}

func ValidLat(lat float64) bool { return lat >= -90 && lat <= 90 }

func ValidLon(lon float64) bool { return lon >= -180 && lon <= 180 }

func deg2rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}
