package domain

import "math"

const (
	// milesPerDegree approximates one degree of latitude.
	milesPerDegree = 69.0

	// minCosLat floors |cos(lat)| so the longitude delta stays finite as
	// lat approaches the poles.
	minCosLat = 1e-6

	MinRadiusMiles = 0.1
	MaxRadiusMiles = 100.0
)

// BoundingBox is a rectangular lat/lng region for spatial upstream queries.
type BoundingBox struct {
	MinLat float64
	MinLng float64
	MaxLat float64
	MaxLng float64
}

// BuildBoundingBox converts a center point and radius in miles into a
// bounding box. Inputs are clamped before any arithmetic, the longitude
// delta is widened by 1/cos(lat), and every bound is clamped back into the
// valid global range and rounded to 7 decimal places (the precision the
// USGS bBox parameter accepts). Pure function.
func BuildBoundingBox(lat, lng, radiusMiles float64) BoundingBox {
	center := Coordinate{Lat: lat, Lng: lng}.Clamp()
	radius := ClampRadius(radiusMiles)

	latDelta := radius / milesPerDegree

	cosLat := math.Cos(center.Lat * math.Pi / 180)
	if math.Abs(cosLat) < minCosLat {
		cosLat = minCosLat
	}
	lngDelta := radius / (milesPerDegree * math.Abs(cosLat))

	return BoundingBox{
		MinLat: round7(clampFloat(center.Lat-latDelta, -90, 90)),
		MinLng: round7(clampFloat(center.Lng-lngDelta, -180, 180)),
		MaxLat: round7(clampFloat(center.Lat+latDelta, -90, 90)),
		MaxLng: round7(clampFloat(center.Lng+lngDelta, -180, 180)),
	}
}

// ClampRadius bounds a search radius to the supported [0.1, 100] mile range.
func ClampRadius(miles float64) float64 {
	if math.IsNaN(miles) {
		return MinRadiusMiles
	}
	return clampFloat(miles, MinRadiusMiles, MaxRadiusMiles)
}

// Contains reports whether the point lies within the box, inclusive.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lng >= b.MinLng && c.Lng <= b.MaxLng
}

func round7(v float64) float64 {
	return math.Round(v*1e7) / 1e7
}
