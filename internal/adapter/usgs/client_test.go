package usgs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/river-watch/internal/domain"
	"github.com/couchcryptid/river-watch/internal/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string, clock clockwork.Clock) *Client {
	return NewClient(baseURL, 5*time.Second, clock, observability.NewMetricsForTesting(), testLogger())
}

// seriesJSON builds one (site x parameter) time-series entry.
func seriesJSON(siteID, name, param string, lat, lng float64, points string) string {
	return fmt.Sprintf(`{
		"sourceInfo": {
			"siteName": %q,
			"siteCode": [{"value": %q}],
			"geoLocation": {"geogLocation": {"latitude": %g, "longitude": %g}}
		},
		"variable": {"variableCode": [{"value": %q}]},
		"values": [{"value": [%s]}]
	}`, name, siteID, lat, lng, param, points)
}

func ivJSON(entries ...string) string {
	body := ""
	for i, e := range entries {
		if i > 0 {
			body += ","
		}
		body += e
	}
	return `{"value":{"timeSeries":[` + body + `]}}`
}

func TestClient_FetchStations(t *testing.T) {
	t.Run("groups series by site", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "json", r.URL.Query().Get("format"))
			assert.Equal(t, "P7D", r.URL.Query().Get("period"))
			assert.Equal(t, "-97.1673479,29.8550725,-96.8326521,30.1449275", r.URL.Query().Get("bBox"))
			assert.Equal(t, "00060,00065", r.URL.Query().Get("parameterCd"))

			fmt.Fprint(w, ivJSON(
				seriesJSON("08158000", "Colorado Rv at Austin, TX", domain.ParamGageHeight, 30.2442, -97.6944,
					`{"value":"4.10","dateTime":"2026-08-30T11:00:00.000-05:00"},
					 {"value":"4.40","dateTime":"2026-08-30T12:00:00.000-05:00"}`),
				seriesJSON("08158000", "Colorado Rv at Austin, TX", domain.ParamDischarge, 30.2442, -97.6944,
					`{"value":"120","dateTime":"2026-08-30T12:00:00.000-05:00"}`),
				seriesJSON("08154700", "Bull Ck at Loop 360, Austin, TX", domain.ParamGageHeight, 30.3719, -97.7845,
					`{"value":"2.05","dateTime":"2026-08-30T12:00:00.000-05:00"}`),
			))
		}))
		defer srv.Close()

		box := domain.BuildBoundingBox(30.0, -97.0, 10)
		got, err := testClient(srv.URL, nil).FetchStations(context.Background(),
			box, []string{domain.ParamDischarge, domain.ParamGageHeight})
		require.NoError(t, err)

		require.Len(t, got, 2)
		assert.Equal(t, "08158000", got[0].SiteID)
		assert.Equal(t, "Colorado Rv at Austin, TX", got[0].Name)
		assert.InDelta(t, 30.2442, got[0].Location.Lat, 1e-9)
		assert.Len(t, got[0].Series[domain.ParamGageHeight], 2)
		assert.Len(t, got[0].Series[domain.ParamDischarge], 1)
		assert.Equal(t, "08154700", got[1].SiteID)
	})

	t.Run("sorts points chronologically", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, ivJSON(
				seriesJSON("08158000", "site", domain.ParamGageHeight, 30, -97,
					`{"value":"4.40","dateTime":"2026-08-30T12:00:00.000-05:00"},
					 {"value":"4.10","dateTime":"2026-08-30T11:00:00.000-05:00"}`),
			))
		}))
		defer srv.Close()

		got, err := testClient(srv.URL, nil).FetchStations(context.Background(),
			domain.BoundingBox{}, domain.DefaultParameterCodes)
		require.NoError(t, err)

		series := got[0].Series[domain.ParamGageHeight]
		require.Len(t, series, 2)
		assert.Equal(t, 4.10, series[0].Value)
		assert.Equal(t, 4.40, series[1].Value)
	})

	t.Run("skips malformed entries without aborting the batch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			noSiteCode := `{
				"sourceInfo": {"siteName": "orphan", "siteCode": []},
				"variable": {"variableCode": [{"value": "00065"}]},
				"values": [{"value": [{"value":"1.0","dateTime":"2026-08-30T12:00:00.000-05:00"}]}]
			}`
			noVariable := `{
				"sourceInfo": {"siteName": "mystery", "siteCode": [{"value": "08159999"}]},
				"variable": {"variableCode": []},
				"values": [{"value": [{"value":"1.0","dateTime":"2026-08-30T12:00:00.000-05:00"}]}]
			}`
			fmt.Fprint(w, ivJSON(
				noSiteCode,
				noVariable,
				seriesJSON("08158000", "good", domain.ParamGageHeight, 30, -97,
					`{"value":"4.40","dateTime":"2026-08-30T12:00:00.000-05:00"}`),
			))
		}))
		defer srv.Close()

		got, err := testClient(srv.URL, nil).FetchStations(context.Background(),
			domain.BoundingBox{}, domain.DefaultParameterCodes)
		require.NoError(t, err)

		require.Len(t, got, 1)
		assert.Equal(t, "08158000", got[0].SiteID)
	})

	t.Run("unparsable values coerce to zero", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, ivJSON(
				seriesJSON("08158000", "site", domain.ParamGageHeight, 30, -97,
					`{"value":"Ice","dateTime":"2026-08-30T11:00:00.000-05:00"},
					 {"value":"4.40","dateTime":"2026-08-30T12:00:00.000-05:00"},
					 {"value":"4.50","dateTime":"not-a-timestamp"}`),
			))
		}))
		defer srv.Close()

		got, err := testClient(srv.URL, nil).FetchStations(context.Background(),
			domain.BoundingBox{}, domain.DefaultParameterCodes)
		require.NoError(t, err)

		series := got[0].Series[domain.ParamGageHeight]
		require.Len(t, series, 2, "bad timestamp dropped")
		assert.Equal(t, 0.0, series[0].Value, "bad value coerced to zero")
	})
}

func TestClient_RetryPolicy(t *testing.T) {
	t.Run("three attempts one second apart on 5xx", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		clock := clockwork.NewFakeClock()
		c := testClient(srv.URL, clock)

		done := make(chan error, 1)
		go func() {
			_, err := c.FetchStations(context.Background(), domain.BoundingBox{}, domain.DefaultParameterCodes)
			done <- err
		}()

		// Two pauses between the three attempts.
		for i := 0; i < 2; i++ {
			clock.BlockUntil(1)
			clock.Advance(retryPause)
		}

		err := <-done
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exhausted 3 attempts")
		assert.Contains(t, err.Error(), "503")
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("4xx is terminal", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			http.Error(w, "bBox out of range", http.StatusBadRequest)
		}))
		defer srv.Close()

		_, err := testClient(srv.URL, clockwork.NewFakeClock()).FetchStations(
			context.Background(), domain.BoundingBox{}, domain.DefaultParameterCodes)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "request rejected by upstream")
		assert.Equal(t, int32(1), calls.Load(), "no retry after rejection")
		assert.False(t, domain.IsRetryable(err))
	})

	t.Run("recovers mid-retry", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				http.Error(w, "flaky", http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, ivJSON(seriesJSON("08158000", "site", domain.ParamGageHeight, 30, -97,
				`{"value":"4.40","dateTime":"2026-08-30T12:00:00.000-05:00"}`)))
		}))
		defer srv.Close()

		clock := clockwork.NewFakeClock()
		c := testClient(srv.URL, clock)

		type result struct {
			readings []domain.StationReadings
			err      error
		}
		done := make(chan result, 1)
		go func() {
			r, err := c.FetchStations(context.Background(), domain.BoundingBox{}, domain.DefaultParameterCodes)
			done <- result{r, err}
		}()

		for i := 0; i < 2; i++ {
			clock.BlockUntil(1)
			clock.Advance(retryPause)
		}

		res := <-done
		require.NoError(t, res.err)
		require.Len(t, res.readings, 1)
		assert.Equal(t, int32(3), calls.Load())
	})
}

func TestClient_FetchSite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "08158000", r.URL.Query().Get("sites"))
		fmt.Fprint(w, ivJSON(seriesJSON("08158000", "Colorado Rv at Austin, TX", domain.ParamGageHeight, 30.2442, -97.6944,
			`{"value":"4.40","dateTime":"2026-08-30T12:00:00.000-05:00"}`)))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, nil).FetchSite(context.Background(), "08158000", domain.DefaultParameterCodes)
	require.NoError(t, err)
	assert.Equal(t, "08158000", got.SiteID)

	_, err = testClient(srv.URL, nil).FetchSite(context.Background(), "99999999", domain.DefaultParameterCodes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
