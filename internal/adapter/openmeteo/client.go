// Package openmeteo fetches current weather conditions from the Open-Meteo
// forecast API.
package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/river-watch/internal/domain"
	"github.com/couchcryptid/river-watch/internal/observability"
)

const providerName = "weather"

// Client queries Open-Meteo for current conditions. No API key required.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		metrics:    metrics,
		logger:     logger,
	}
}

// CurrentWeather fetches current conditions at a coordinate. Timeouts map
// to domain.ErrUpstreamTimeout so the API layer can answer 408.
func (c *Client) CurrentWeather(ctx context.Context, lat, lng float64) (domain.WeatherData, error) {
	params := url.Values{
		"latitude":  {fmt.Sprintf("%.4f", lat)},
		"longitude": {fmt.Sprintf("%.4f", lng)},
		"current":   {"temperature_2m,relative_humidity_2m,precipitation,wind_speed_10m,weather_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.WeatherData{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
	if err != nil {
		if isTimeout(err) {
			c.metrics.UpstreamRequests.WithLabelValues(providerName, "timeout").Inc()
			return domain.WeatherData{}, fmt.Errorf("weather request: %w", domain.ErrUpstreamTimeout)
		}
		c.metrics.UpstreamRequests.WithLabelValues(providerName, "unavailable").Inc()
		return domain.WeatherData{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			c.metrics.UpstreamRequests.WithLabelValues(providerName, "rejected").Inc()
			return domain.WeatherData{}, domain.NewUpstreamRejected(providerName, resp.StatusCode, string(body))
		}
		c.metrics.UpstreamRequests.WithLabelValues(providerName, "unavailable").Inc()
		return domain.WeatherData{}, domain.NewUpstreamUnavailable(providerName, resp.StatusCode, string(body))
	}

	var omResp response
	if err := json.NewDecoder(resp.Body).Decode(&omResp); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(providerName, "unavailable").Inc()
		return domain.WeatherData{}, fmt.Errorf("decode response: %w", err)
	}
	c.metrics.UpstreamRequests.WithLabelValues(providerName, "success").Inc()

	observedAt, _ := time.Parse("2006-01-02T15:04", omResp.Current.Time)
	return domain.WeatherData{
		Location:      domain.Coordinate{Lat: omResp.Latitude, Lng: omResp.Longitude},
		TemperatureC:  omResp.Current.Temperature,
		WindSpeedKmh:  omResp.Current.WindSpeed,
		Precipitation: omResp.Current.Precipitation,
		HumidityPct:   omResp.Current.Humidity,
		WeatherCode:   omResp.Current.WeatherCode,
		ObservedAt:    observedAt.UTC(),
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Open-Meteo API response types.

type response struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Current   current `json:"current"`
}

type current struct {
	Time          string  `json:"time"`
	Temperature   float64 `json:"temperature_2m"`
	Humidity      float64 `json:"relative_humidity_2m"`
	Precipitation float64 `json:"precipitation"`
	WindSpeed     float64 `json:"wind_speed_10m"`
	WeatherCode   int     `json:"weather_code"`
}
