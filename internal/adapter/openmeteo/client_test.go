package openmeteo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/river-watch/internal/domain"
	"github.com/couchcryptid/river-watch/internal/observability"
)

func testClient(baseURL string, timeout time.Duration) *Client {
	return NewClient(baseURL, timeout, observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_CurrentWeather(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "30.2672", r.URL.Query().Get("latitude"))
			assert.Equal(t, "-97.7431", r.URL.Query().Get("longitude"))
			assert.Contains(t, r.URL.Query().Get("current"), "precipitation")

			fmt.Fprint(w, `{
				"latitude": 30.25, "longitude": -97.75,
				"current": {
					"time": "2026-08-31T12:00",
					"temperature_2m": 34.1,
					"relative_humidity_2m": 48,
					"precipitation": 2.5,
					"wind_speed_10m": 14.2,
					"weather_code": 80
				}
			}`)
		}))
		defer srv.Close()

		got, err := testClient(srv.URL, 5*time.Second).CurrentWeather(context.Background(), 30.2672, -97.7431)
		require.NoError(t, err)

		assert.Equal(t, 34.1, got.TemperatureC)
		assert.Equal(t, 2.5, got.Precipitation)
		assert.Equal(t, 14.2, got.WindSpeedKmh)
		assert.Equal(t, 48.0, got.HumidityPct)
		assert.Equal(t, 80, got.WeatherCode)
		assert.Equal(t, time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC), got.ObservedAt)
	})

	t.Run("timeout maps to sentinel", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		_, err := testClient(srv.URL, 20*time.Millisecond).CurrentWeather(context.Background(), 30, -97)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "overloaded", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := testClient(srv.URL, time.Second).CurrentWeather(context.Background(), 30, -97)
		require.Error(t, err)
		var ue *domain.UpstreamError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, "weather", ue.Provider)
		assert.Equal(t, http.StatusBadGateway, ue.StatusCode)
		assert.True(t, ue.Retryable)
	})

	t.Run("client error is terminal", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "bad coordinates", http.StatusBadRequest)
		}))
		defer srv.Close()

		_, err := testClient(srv.URL, time.Second).CurrentWeather(context.Background(), 30, -97)
		require.Error(t, err)
		var ue *domain.UpstreamError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, http.StatusBadRequest, ue.StatusCode)
		assert.False(t, ue.Retryable)
	})
}
