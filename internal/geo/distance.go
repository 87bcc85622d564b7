package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by every distance check.
const EarthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between two coordinates
// using the haversine formula.
func DistanceMeters(latA, lonA, latB, lonB float64) float64 {
	phiA := toRadians(latA)
	phiB := toRadians(latB)
	dPhi := toRadians(latB - latA)
	dLambda := toRadians(lonB - lonA)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phiA)*math.Cos(phiB)*sinLambda*sinLambda
	if a > 1 {
		a = 1
	}
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// LatitudeBand returns the latitude interval that contains every point lying
// within radiusMeters of lat. Any such point differs from lat by at most
// radius/R radians, so the band is safe to use as a query prefilter; the
// final decision must still go through DistanceMeters.
func LatitudeBand(lat, radiusMeters float64) (minLat, maxLat float64) {
	delta := radiusMeters / EarthRadiusMeters * 180 / math.Pi
	return math.Max(lat-delta, -90), math.Min(lat+delta, 90)
}

// ValidCoordinate reports whether lat/lon are finite and within WGS84 range.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
