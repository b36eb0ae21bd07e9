package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the Haversine formula.
const earthRadiusMeters = 6371000

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether the coordinates are inside the WGS84 ranges.
// The exact point (0,0) is treated as "ungeocoded" and rejected, since no
// office or employee is expected to be at Null Island.
func (c Coordinates) Valid() bool {
	if c.Latitude == 0 && c.Longitude == 0 {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Distance returns the great-circle distance between two points in meters
// using the Haversine formula. Callers validate coordinates beforehand.
func Distance(a, b Coordinates) float64 {
	dLat := (b.Latitude - a.Latitude) * (math.Pi / 180.0)
	dLon := (b.Longitude - a.Longitude) * (math.Pi / 180.0)

	lat1Rad := a.Latitude * (math.Pi / 180.0)
	lat2Rad := b.Latitude * (math.Pi / 180.0)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// WithinRadius reports whether point lies within radiusMeters of center.
func WithinRadius(point, center Coordinates, radiusMeters float64) bool {
	return Distance(point, center) <= radiusMeters
}
