package services

import (
	"math"
	"waste-route-service/internal/domain"
)

const (
	// Mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0

	// Urban driving assumption used when callers do not override it.
	DefaultAverageSpeedKmh = 30.0
)

// Distance returns the great-circle distance between a and b in kilometers.
// Invalid coordinates propagate NaN; validate at ingestion.
func Distance(a, b domain.Coordinates) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*sinLng*sinLng
	// Rounding can push near-antipodal pairs just past 1.
	h = math.Min(h, 1)

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// EstimatedDuration converts a distance to minutes at the given average speed.
// averageSpeedKmh must be > 0.
func EstimatedDuration(distanceKm, averageSpeedKmh float64) float64 {
	return (distanceKm / averageSpeedKmh) * 60
}

// EstimatedDurationDefault uses DefaultAverageSpeedKmh.
func EstimatedDurationDefault(distanceKm float64) float64 {
	return EstimatedDuration(distanceKm, DefaultAverageSpeedKmh)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
