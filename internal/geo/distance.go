// Package geo provides great-circle distances and the GeoJSON map layer for
// an analysis.
package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// EarthRadiusM is the mean Earth radius used for haversine distances.
const EarthRadiusM = 6371000.0

// SRID for WGS84 lat/lng.
const wgs84 = 4326

// Point builds a WGS84 point. go-geom stores X as longitude and Y as latitude.
func Point(lat, lng float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(wgs84)
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b *geom.Point) float64 {
	lat1, lng1 := a.Y(), a.X()
	lat2, lng2 := b.Y(), b.X()

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusM * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceM returns the haversine distance between two coordinates rounded
// to the nearest meter.
func DistanceM(lat1, lng1, lat2, lng2 float64) int {
	return int(math.Round(Haversine(Point(lat1, lng1), Point(lat2, lng2))))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
