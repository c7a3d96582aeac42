// Package geo provides the great-circle distance calculation behind the
// fallback distance matrix provider. Grounded on the teacher's
// pkg/maps.haversineDistance helper, generalized from kilometers-for-parking
// to the seconds-of-travel-time the solver's DistanceMatrix contract needs.
package geo

import "math"

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lng1Rad := lng1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lng2Rad := lng2 * math.Pi / 180

	dlat := lat2Rad - lat1Rad
	dlng := lng2Rad - lng1Rad

	a := (1-math.Cos(dlat))/2 + math.Cos(lat1Rad)*math.Cos(lat2Rad)*(1-math.Cos(dlng))/2
	c := 2 * math.Asin(math.Sqrt(a))

	return earthRadiusKm * c
}

// TravelSeconds converts a great-circle distance into a travel-time
// estimate at the given assumed speed in km/h.
func TravelSeconds(lat1, lng1, lat2, lng2, speedKmH float64) float64 {
	if speedKmH <= 0 {
		speedKmH = 40.0
	}
	km := HaversineKm(lat1, lng1, lat2, lng2)
	hours := km / speedKmH
	return hours * 3600.0
}
