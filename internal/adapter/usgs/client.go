// Package usgs fetches river-gauge telemetry from the USGS Instantaneous
// Values service.
package usgs

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
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/river-watch/internal/domain"
	"github.com/couchcryptid/river-watch/internal/observability"
)

const (
	// Retry policy: up to 3 attempts total with a fixed 1 second pause.
	// The IV service recovers fast or not at all; exponential backoff just
	// delays the inevitable error page.
	maxAttempts = 3
	retryPause  = time.Second

	// lookbackPeriod is the fixed history window for every bbox query.
	lookbackPeriod = "P7D"

	providerName = "usgs"

	maxErrorBody = 512
)

// Client queries the USGS IV endpoint with bounded retry.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a USGS IV client. Pass nil for the clock to use real
// time; tests inject a fake to step through retry pauses.
func NewClient(baseURL string, timeout time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// FetchStations issues one bounding-box query for the given parameter codes
// over the fixed lookback window and groups the response by site. Fails only
// after exhausting retries or on a terminal upstream rejection.
func (c *Client) FetchStations(ctx context.Context, box domain.BoundingBox, parameterCodes []string) ([]domain.StationReadings, error) {
	params := url.Values{
		"format": {"json"},
		"bBox": {fmt.Sprintf("%.7f,%.7f,%.7f,%.7f",
			box.MinLng, box.MinLat, box.MaxLng, box.MaxLat)},
		"parameterCd": {strings.Join(parameterCodes, ",")},
		"period":      {lookbackPeriod},
		"siteStatus":  {"active"},
	}

	resp, err := c.doWithRetry(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return groupBySite(resp), nil
}

// FetchSite queries a single site by its USGS code, for the flood-stage
// endpoint. Same retry policy as the bbox query.
func (c *Client) FetchSite(ctx context.Context, siteID string, parameterCodes []string) (domain.StationReadings, error) {
	params := url.Values{
		"format":      {"json"},
		"sites":       {siteID},
		"parameterCd": {strings.Join(parameterCodes, ",")},
		"period":      {lookbackPeriod},
	}

	resp, err := c.doWithRetry(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return domain.StationReadings{}, err
	}

	for _, r := range groupBySite(resp) {
		if r.SiteID == siteID {
			return r, nil
		}
	}
	return domain.StationReadings{}, fmt.Errorf("site %s not found in upstream response: %w", siteID, domain.ErrNotFound)
}

// doWithRetry runs the request up to maxAttempts times, pausing retryPause
// between attempts. Terminal rejections (4xx) surface immediately.
func (c *Client) doWithRetry(ctx context.Context, fullURL string) (*ivResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.doRequest(ctx, fullURL)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !domain.IsRetryable(err) {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}

		c.logger.Warn("usgs fetch failed, retrying",
			"attempt", attempt,
			"error", err,
		)
		c.metrics.UpstreamRetries.Inc()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.clock.After(retryPause):
		}
	}
	return nil, fmt.Errorf("usgs fetch exhausted %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (*ivResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
	if err != nil {
		if isTimeout(err) {
			c.metrics.UpstreamRequests.WithLabelValues(providerName, "timeout").Inc()
			return nil, fmt.Errorf("usgs request: %w", domain.ErrUpstreamTimeout)
		}
		c.metrics.UpstreamRequests.WithLabelValues(providerName, "unavailable").Inc()
		return nil, domain.NewUpstreamUnavailable(providerName, 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			c.metrics.UpstreamRequests.WithLabelValues(providerName, "rejected").Inc()
			return nil, domain.NewUpstreamRejected(providerName, resp.StatusCode, string(body))
		}
		c.metrics.UpstreamRequests.WithLabelValues(providerName, "unavailable").Inc()
		return nil, domain.NewUpstreamUnavailable(providerName, resp.StatusCode, string(body))
	}

	var ivResp ivResponse
	if err := json.NewDecoder(resp.Body).Decode(&ivResp); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(providerName, "unavailable").Inc()
		return nil, domain.NewUpstreamUnavailable(providerName, resp.StatusCode, "decode response: "+err.Error())
	}

	c.metrics.UpstreamRequests.WithLabelValues(providerName, "success").Inc()
	return &ivResp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
