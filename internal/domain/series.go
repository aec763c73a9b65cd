package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// Downsampling keeps between 20 and 100 points per series.
	minSamplePoints = 20
	maxSamplePoints = 100
)

// SeriesPoint is one parsed observation in a gauge time series.
type SeriesPoint struct {
	Time  time.Time
	Value float64
}

// ParseSeriesValue parses a raw USGS value string, returning 0 on failure.
// The IV service emits sentinel and empty values for equipment gaps; a zero
// reading is preferable to dropping the point.
func ParseSeriesValue(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// SortSeries orders points chronologically ascending, in place.
func SortSeries(points []SeriesPoint) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
}

// DownsampleSeries reduces a chronologically sorted series to a bounded
// point count. The target is clamp(total, 20, 100); points are taken every
// floor(total/target)-th index, and the chronologically last point is
// force-appended if the stride dropped it, so the most recent reading is
// never lost. A series at or below the minimum is returned unchanged.
// Deterministic for identical input.
func DownsampleSeries(points []SeriesPoint) []SeriesPoint {
	total := len(points)
	if total == 0 {
		return points
	}

	target := total
	if target < minSamplePoints {
		target = minSamplePoints
	}
	if target > maxSamplePoints {
		target = maxSamplePoints
	}

	stride := total / target
	if stride < 1 {
		stride = 1
	}

	sampled := make([]SeriesPoint, 0, target+1)
	lastTaken := 0
	for i := 0; i < total; i += stride {
		sampled = append(sampled, points[i])
		lastTaken = i
	}
	if lastTaken != total-1 {
		sampled = append(sampled, points[total-1])
	}
	return sampled
}

// LatestPoint returns the chronologically last point of a sorted series and
// whether the series was non-empty.
func LatestPoint(points []SeriesPoint) (SeriesPoint, bool) {
	if len(points) == 0 {
		return SeriesPoint{}, false
	}
	return points[len(points)-1], true
}

// FlowTrend derives the normalized flow-change rate from a sampled discharge
// series: (last - first) / max(|first|, 1), clamped to [-1, 1]. Fewer than
// two points yield a flat trend.
func FlowTrend(points []SeriesPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	first := points[0].Value
	last := points[len(points)-1].Value

	base := first
	if base < 0 {
		base = -base
	}
	if base < 1 {
		base = 1
	}
	return clampFloat((last-first)/base, -1, 1)
}
