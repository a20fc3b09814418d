package service

import (
	"math"
	"strconv"

	"github.com/noah-isme/jadwal-sholat/internal/models"
)

const earthRadiusMeters = 6371000.0

// HaversineDistance returns the great-circle distance between a and b in
// meters.
func HaversineDistance(a, b models.Coordinates) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// SearchRadius maps position accuracy to a mosque search radius. Unknown
// accuracy gets the widest radius.
func SearchRadius(accuracy *float64) int {
	switch {
	case accuracy == nil:
		return 4000
	case *accuracy <= 100:
		return 2000
	case *accuracy <= 500:
		return 3000
	default:
		return 4000
	}
}

// FormatRadius renders a radius as "2 km" or "800 m".
func FormatRadius(radius int) string {
	if radius >= 1000 {
		return strconv.FormatFloat(float64(radius)/1000, 'f', -1, 64) + " km"
	}
	return strconv.Itoa(radius) + " m"
}
