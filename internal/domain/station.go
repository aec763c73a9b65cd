package domain

import "time"

// USGS parameter codes for the gauge readings the service consumes.
const (
	ParamDischarge     = "00060"
	ParamGageHeight    = "00065"
	ParamTemperature   = "00010"
	ParamPrecipitation = "00045"
)

// DefaultParameterCodes lists the gauge parameters requested for every
// station query.
var DefaultParameterCodes = []string{
	ParamDischarge,
	ParamGageHeight,
	ParamTemperature,
	ParamPrecipitation,
}

// Coordinate is a WGS-84 latitude/longitude pair. Always clamp before use.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Clamp bounds the coordinate to valid global ranges.
func (c Coordinate) Clamp() Coordinate {
	return Coordinate{
		Lat: clampFloat(c.Lat, -90, 90),
		Lng: clampFloat(c.Lng, -180, 180),
	}
}

// HistoryPoint is one downsampled observation in a station's recent history.
// Level is gage height in feet; Flow is discharge in cfs when a reading with
// a matching timestamp exists, otherwise zero.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Level     float64   `json:"level"`
	Flow      float64   `json:"flow"`
}

// Station is the uniform model assembled from the per-parameter USGS series.
// Constructed fresh per request, never persisted.
type Station struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Location Coordinate `json:"location"`

	// Latest readings. Absent parameters stay nil; a station without a
	// stage reading is dropped from nearby results.
	Flow          *float64 `json:"flow,omitempty"`
	Stage         *float64 `json:"stage,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	Precipitation *float64 `json:"precipitation,omitempty"`

	Unit        string    `json:"unit"`
	LastUpdated time.Time `json:"lastUpdated"`

	HistoricalData []HistoryPoint `json:"historicalData"`
	FloodStages    FloodStageSet  `json:"floodStages"`
	RiskScore      float64        `json:"riskScore"`

	// Distance from the request center in miles, filled during ranking.
	DistanceMiles float64 `json:"distanceMiles"`

	ScoredAt time.Time `json:"scoredAt"`
}

// WeatherData is the current-conditions payload from the weather provider.
type WeatherData struct {
	Location      Coordinate `json:"location"`
	TemperatureC  float64    `json:"temperatureC"`
	WindSpeedKmh  float64    `json:"windSpeedKmh"`
	Precipitation float64    `json:"precipitationMm"`
	HumidityPct   float64    `json:"humidityPct"`
	WeatherCode   int        `json:"weatherCode"`
	ObservedAt    time.Time  `json:"observedAt"`
}

// FloodStatus is the per-site flood summary for the flood-stage endpoint.
type FloodStatus struct {
	SiteID       string        `json:"siteId"`
	CurrentStage float64       `json:"currentStage"`
	FloodStages  FloodStageSet `json:"floodStages"`
	Status       string        `json:"status"`
	Risk         float64       `json:"risk"`
}

// StationReadings groups the tolerant-parsed per-parameter series for one
// site, as produced by the gauge fetcher. Series are keyed by USGS parameter
// code and sorted chronologically.
type StationReadings struct {
	SiteID   string
	Name     string
	Location Coordinate
	Series   map[string][]SeriesPoint
}

// BuildStation assembles the uniform station model from grouped readings.
// The stage series is load-bearing: a site without a usable gage-height
// reading returns false and is excluded from results (partial failure, not
// an error). Other parameters are absent-tolerant.
func BuildStation(r StationReadings) (Station, bool) {
	stage := DownsampleSeries(r.Series[ParamGageHeight])
	latestStage, ok := LatestPoint(stage)
	if !ok {
		return Station{}, false
	}

	discharge := DownsampleSeries(r.Series[ParamDischarge])

	s := Station{
		ID:             r.SiteID,
		Name:           r.Name,
		Location:       r.Location.Clamp(),
		Unit:           "ft",
		Stage:          &latestStage.Value,
		LastUpdated:    latestStage.Time,
		HistoricalData: MergeHistory(stage, discharge),
		ScoredAt:       clock.Now(),
	}
	if p, ok := LatestPoint(discharge); ok {
		s.Flow = &p.Value
	}
	if p, ok := LatestPoint(r.Series[ParamTemperature]); ok {
		s.Temperature = &p.Value
	}
	if p, ok := LatestPoint(r.Series[ParamPrecipitation]); ok {
		s.Precipitation = &p.Value
	}
	return s, true
}

// MergeHistory zips the sampled stage series with the sampled discharge
// series, matching flow to level by timestamp. Stage drives the point list;
// discharge observations without a stage counterpart are dropped.
func MergeHistory(stage, discharge []SeriesPoint) []HistoryPoint {
	if len(stage) == 0 {
		return nil
	}
	flowAt := make(map[time.Time]float64, len(discharge))
	for _, p := range discharge {
		flowAt[p.Time] = p.Value
	}
	history := make([]HistoryPoint, len(stage))
	for i, p := range stage {
		history[i] = HistoryPoint{
			Timestamp: p.Time,
			Level:     p.Value,
			Flow:      flowAt[p.Time],
		}
	}
	return history
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
