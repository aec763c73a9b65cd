// Package geo ranks fetched stations by distance from a request center
// using an in-memory R-tree.
package geo

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/couchcryptid/river-watch/internal/domain"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50

	// tolerance is the point-to-rect expansion in degrees.
	tolerance = 0.0001

	earthRadiusMiles = 3958.8
)

// spatialStation wraps a station to implement rtreego.Spatial.
type spatialStation struct {
	station domain.Station
	rect    *rtreego.Rect
}

func (s *spatialStation) Bounds() *rtreego.Rect {
	return s.rect
}

// Index is a per-request spatial index over fetched stations. Built once,
// queried once; not safe for concurrent mutation.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// NewIndex builds an R-tree over the stations' locations.
func NewIndex(stations []domain.Station) *Index {
	tree := rtreego.NewTree(dimensions, minChildren, maxChildren)
	size := 0
	for _, st := range stations {
		p := rtreego.Point{st.Location.Lat, st.Location.Lng}
		tree.Insert(&spatialStation{station: st, rect: p.ToRect(tolerance)})
		size++
	}
	return &Index{tree: tree, size: size}
}

// WithinRadius returns the stations inside radiusMiles of the center,
// ordered nearest first, with DistanceMiles filled in. The upstream
// bounding box is a rectangle superset of the requested circle; this is the
// final circular cut.
func (ix *Index) WithinRadius(center domain.Coordinate, radiusMiles float64) []domain.Station {
	if ix.size == 0 {
		return nil
	}

	neighbors := ix.tree.NearestNeighbors(ix.size, rtreego.Point{center.Lat, center.Lng})

	out := make([]domain.Station, 0, len(neighbors))
	for _, n := range neighbors {
		ss, ok := n.(*spatialStation)
		if !ok {
			continue
		}
		d := DistanceMiles(center, ss.station.Location)
		if d > radiusMiles {
			continue
		}
		st := ss.station
		st.DistanceMiles = math.Round(d*100) / 100
		out = append(out, st)
	}

	// NearestNeighbors orders by rect distance; re-sort on great-circle
	// distance so ties near the tolerance box resolve stably.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceMiles < out[j].DistanceMiles
	})
	return out
}

// DistanceMiles computes the haversine great-circle distance between two
// coordinates, in miles.
func DistanceMiles(a, b domain.Coordinate) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}
