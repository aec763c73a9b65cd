package usgs

import (
	"time"

	"github.com/couchcryptid/river-watch/internal/domain"
)

// USGS IV response types, limited to the fields the service consumes. The
// full payload is far larger; everything else is ignored on decode.

type ivResponse struct {
	Value struct {
		TimeSeries []timeSeriesEntry `json:"timeSeries"`
	} `json:"value"`
}

type timeSeriesEntry struct {
	SourceInfo struct {
		SiteName string      `json:"siteName"`
		SiteCode []codeValue `json:"siteCode"`
		GeoLocation struct {
			GeogLocation struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"geogLocation"`
		} `json:"geoLocation"`
	} `json:"sourceInfo"`
	Variable struct {
		VariableCode []codeValue `json:"variableCode"`
	} `json:"variable"`
	Values []struct {
		Value []rawPoint `json:"value"`
	} `json:"values"`
}

type codeValue struct {
	Value string `json:"value"`
}

type rawPoint struct {
	Value    string `json:"value"`
	DateTime string `json:"dateTime"`
}

// groupBySite folds the per-(site x parameter) series into one
// StationReadings per site, preserving upstream order. Entries missing a
// site code or variable code are skipped without aborting the batch;
// partial results are acceptable.
func groupBySite(resp *ivResponse) []domain.StationReadings {
	byID := make(map[string]*domain.StationReadings)
	var order []string

	for _, entry := range resp.Value.TimeSeries {
		siteID := firstCode(entry.SourceInfo.SiteCode)
		paramCode := firstCode(entry.Variable.VariableCode)
		if siteID == "" || paramCode == "" {
			continue
		}

		r, ok := byID[siteID]
		if !ok {
			r = &domain.StationReadings{
				SiteID: siteID,
				Name:   entry.SourceInfo.SiteName,
				Location: domain.Coordinate{
					Lat: entry.SourceInfo.GeoLocation.GeogLocation.Latitude,
					Lng: entry.SourceInfo.GeoLocation.GeogLocation.Longitude,
				},
				Series: make(map[string][]domain.SeriesPoint),
			}
			byID[siteID] = r
			order = append(order, siteID)
		}

		points := extractPoints(entry)
		if len(points) > 0 {
			r.Series[paramCode] = append(r.Series[paramCode], points...)
			domain.SortSeries(r.Series[paramCode])
		}
	}

	out := make([]domain.StationReadings, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

// extractPoints converts a series entry's raw points. Unparsable numeric
// values coerce to 0; points with unparsable timestamps are dropped.
func extractPoints(entry timeSeriesEntry) []domain.SeriesPoint {
	var points []domain.SeriesPoint
	for _, block := range entry.Values {
		for _, p := range block.Value {
			ts, err := time.Parse(time.RFC3339, p.DateTime)
			if err != nil {
				continue
			}
			points = append(points, domain.SeriesPoint{
				Time:  ts.UTC(),
				Value: domain.ParseSeriesValue(p.Value),
			})
		}
	}
	return points
}

func firstCode(codes []codeValue) string {
	if len(codes) == 0 {
		return ""
	}
	return codes[0].Value
}
