// Package service orchestrates the ingest-normalize-score pipeline behind
// the API handlers.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/river-watch/internal/cache"
	"github.com/couchcryptid/river-watch/internal/domain"
	"github.com/couchcryptid/river-watch/internal/geo"
	"github.com/couchcryptid/river-watch/internal/observability"
	"github.com/couchcryptid/river-watch/internal/ratelimit"
)

// Rate-limit endpoint classes.
const classWeather = "weather"

// alertPublishTimeout bounds the fire-and-forget alert publish; the API
// response never waits on the broker.
const alertPublishTimeout = 5 * time.Second

// StationFetcher pulls grouped gauge readings from the telemetry provider.
type StationFetcher interface {
	FetchStations(ctx context.Context, box domain.BoundingBox, parameterCodes []string) ([]domain.StationReadings, error)
	FetchSite(ctx context.Context, siteID string, parameterCodes []string) (domain.StationReadings, error)
}

// WeatherProvider fetches current conditions at a coordinate.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, lat, lng float64) (domain.WeatherData, error)
}

// AlertPublisher pushes high-risk stations to the alert topic.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, stations []domain.Station) error
}

// Options configures a Service.
type Options struct {
	StationCacheTTL    time.Duration
	WeatherCacheTTL    time.Duration
	WeatherMinSpacing  time.Duration
	AlertRiskThreshold float64

	// Clock drives cache expiry and rate limiting; nil means real time.
	Clock clockwork.Clock
}

// Service wires the fetchers, resolver, scorer, cache, and rate limiter
// into the request-level operations. The caches and the limiter are the
// only cross-request shared mutable state.
type Service struct {
	fetcher   StationFetcher
	authority domain.StageAuthority
	weather   WeatherProvider
	alerts    AlertPublisher

	stationCache *cache.TTL[[]domain.Station]
	weatherCache *cache.TTL[domain.WeatherData]
	limiter      *ratelimit.Limiter

	alertThreshold float64
	metrics        *observability.Metrics
	logger         *slog.Logger
}

// New creates a Service. authority and alerts may be nil: a nil authority
// always resolves calculated flood stages, a nil publisher disables alerts.
func New(fetcher StationFetcher, authority domain.StageAuthority, weather WeatherProvider, alerts AlertPublisher,
	opts Options, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		fetcher:        fetcher,
		authority:      authority,
		weather:        weather,
		alerts:         alerts,
		stationCache:   cache.New[[]domain.Station](opts.StationCacheTTL, opts.Clock),
		weatherCache:   cache.New[domain.WeatherData](opts.WeatherCacheTTL, opts.Clock),
		limiter:        ratelimit.New(opts.WeatherMinSpacing, opts.Clock),
		alertThreshold: opts.AlertRiskThreshold,
		metrics:        metrics,
		logger:         logger,
	}
}

// CheckReadiness reports whether the service can take traffic. The pipeline
// is stateless between requests, so listening is being ready.
func (s *Service) CheckReadiness(_ context.Context) error {
	return nil
}

// NearbyRivers returns scored stations within radiusMiles of the center,
// nearest first. Results are cached per quantized center and radius.
func (s *Service) NearbyRivers(ctx context.Context, lat, lng, radiusMiles float64) ([]domain.Station, error) {
	center := domain.Coordinate{Lat: lat, Lng: lng}.Clamp()
	radius := domain.ClampRadius(radiusMiles)

	key := cache.CoordKey(center.Lat, center.Lng, fmt.Sprintf("r=%.1f", radius))
	if stations, ok := s.stationCache.Get(key); ok {
		s.metrics.CacheLookups.WithLabelValues("stations", "hit").Inc()
		return stations, nil
	}
	s.metrics.CacheLookups.WithLabelValues("stations", "miss").Inc()

	box := domain.BuildBoundingBox(center.Lat, center.Lng, radius)
	readings, err := s.fetcher.FetchStations(ctx, box, domain.DefaultParameterCodes)
	if err != nil {
		return nil, err
	}

	// One weather lookup per request center covers the precipitation factor
	// for every station in the box. Fail-soft: no weather, no precip signal.
	precipFactor := s.precipFactorFor(ctx, center)

	stations := s.assembleStations(readings)
	s.enrichConcurrently(ctx, stations, readings, precipFactor)

	ranked := geo.NewIndex(stations).WithinRadius(center, radius)

	s.stationCache.Put(key, ranked)
	s.metrics.StationsReturned.Observe(float64(len(ranked)))
	s.publishHighRiskAlerts(ranked)

	return ranked, nil
}

// FloodStage returns the flood summary for a single USGS site.
func (s *Service) FloodStage(ctx context.Context, siteID string) (domain.FloodStatus, error) {
	readings, err := s.fetcher.FetchSite(ctx, siteID, domain.DefaultParameterCodes)
	if err != nil {
		return domain.FloodStatus{}, err
	}

	station, ok := domain.BuildStation(readings)
	if !ok {
		return domain.FloodStatus{}, fmt.Errorf("site %s has no stage data: %w", siteID, domain.ErrNotFound)
	}

	stages := s.resolveStages(ctx, station.ID, *station.Stage)
	trend := domain.FlowTrend(domain.DownsampleSeries(readings.Series[domain.ParamDischarge]))
	precipFactor := s.precipFactorFor(ctx, station.Location)

	risk := domain.ScoreRisk(*station.Stage, stages, trend, precipFactor)
	return domain.FloodStatus{
		SiteID:       siteID,
		CurrentStage: *station.Stage,
		FloodStages:  stages,
		Status:       stages.StatusFor(*station.Stage),
		Risk:         risk,
	}, nil
}

// CurrentWeather returns current conditions at a coordinate, cached per
// quantized coordinate and gated by the weather rate limit. Rejections
// surface as domain.ErrRateLimited.
func (s *Service) CurrentWeather(ctx context.Context, lat, lng float64) (domain.WeatherData, error) {
	center := domain.Coordinate{Lat: lat, Lng: lng}.Clamp()
	return s.fetchWeather(ctx, center)
}

func (s *Service) fetchWeather(ctx context.Context, c domain.Coordinate) (domain.WeatherData, error) {
	key := cache.CoordKey(c.Lat, c.Lng)
	if wx, ok := s.weatherCache.Get(key); ok {
		s.metrics.CacheLookups.WithLabelValues("weather", "hit").Inc()
		return wx, nil
	}
	s.metrics.CacheLookups.WithLabelValues("weather", "miss").Inc()

	if err := s.limiter.Allow(classWeather); err != nil {
		s.metrics.RateLimitRejections.WithLabelValues(classWeather).Inc()
		return domain.WeatherData{}, err
	}

	wx, err := s.weather.CurrentWeather(ctx, c.Lat, c.Lng)
	if err != nil {
		return domain.WeatherData{}, err
	}
	s.weatherCache.Put(key, wx)
	return wx, nil
}

// precipFactorFor derives the 0-1 precipitation factor for scoring.
// Weather failures and rate-limit rejections degrade to 0, never fail the
// station pipeline.
func (s *Service) precipFactorFor(ctx context.Context, c domain.Coordinate) float64 {
	wx, err := s.fetchWeather(ctx, c)
	if err != nil {
		s.logger.Debug("weather lookup for scoring degraded",
			"lat", c.Lat,
			"lng", c.Lng,
			"error", err,
		)
		return 0
	}
	return domain.PrecipIntensity(wx.Precipitation)
}

// assembleStations builds the uniform model for each site group, dropping
// sites without usable stage data. Partial results are acceptable.
func (s *Service) assembleStations(readings []domain.StationReadings) []domain.Station {
	stations := make([]domain.Station, 0, len(readings))
	for _, r := range readings {
		station, ok := domain.BuildStation(r)
		if !ok {
			s.metrics.StationsSkipped.Inc()
			s.logger.Debug("station skipped, no stage series", "site_id", r.SiteID)
			continue
		}
		stations = append(stations, station)
	}
	return stations
}

// enrichConcurrently resolves flood stages and scores risk for every
// station. Enrichment tasks share no mutable station state, so they fan
// out and join on a barrier; a single station's failure falls back to the
// calculated stage set and never aborts the batch.
func (s *Service) enrichConcurrently(ctx context.Context, stations []domain.Station, readings []domain.StationReadings, precipFactor float64) {
	trendBySite := make(map[string]float64, len(readings))
	for _, r := range readings {
		trendBySite[r.SiteID] = domain.FlowTrend(domain.DownsampleSeries(r.Series[domain.ParamDischarge]))
	}

	done := make(chan struct{})
	for i := range stations {
		go func(st *domain.Station) {
			defer func() { done <- struct{}{} }()

			stages := s.resolveStages(ctx, st.ID, *st.Stage)
			st.FloodStages = stages
			st.RiskScore = domain.ScoreRisk(*st.Stage, stages, trendBySite[st.ID], precipFactor)
		}(&stations[i])
	}
	for range stations {
		<-done
	}
}

func (s *Service) resolveStages(ctx context.Context, siteID string, currentStage float64) domain.FloodStageSet {
	stages := domain.ResolveFloodStages(ctx, siteID, currentStage, s.authority, s.logger)
	s.metrics.FloodStageResolutions.WithLabelValues(stages.Source).Inc()
	return stages
}

// publishHighRiskAlerts forwards stations at or above the alert threshold
// to the alert topic. Fire-and-forget with its own deadline; in-flight
// publishes run to completion regardless of the request.
func (s *Service) publishHighRiskAlerts(stations []domain.Station) {
	if s.alerts == nil {
		return
	}
	var high []domain.Station
	for _, st := range stations {
		if st.RiskScore >= s.alertThreshold {
			high = append(high, st)
		}
	}
	if len(high) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), alertPublishTimeout)
		defer cancel()

		if err := s.alerts.PublishAlerts(ctx, high); err != nil {
			s.logger.Warn("risk alert publish failed", "count", len(high), "error", err)
			return
		}
		s.metrics.RiskAlertsPublished.Add(float64(len(high)))
	}()
}
