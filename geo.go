package main

import "math"

// haversine returns the great-circle distance between two points in km.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371 // Earth radius in km
	dLat := (lat2 - lat1) * (math.Pi / 180)
	dLon := (lon2 - lon1) * (math.Pi / 180)
	lat1 = lat1 * (math.Pi / 180)
	lat2 = lat2 * (math.Pi / 180)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// withinDistance reports whether two located profiles are at most maxKm
// apart. A non-positive maxKm disables the cutoff.
func withinDistance(a, b *Profile, maxKm int) bool {
	if maxKm <= 0 {
		return true
	}
	if !a.HasLocation() || !b.HasLocation() {
		return false
	}
	return haversine(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude) <= float64(maxKm)
}
