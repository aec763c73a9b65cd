// Package nwps looks up official flood-stage thresholds from the NOAA
// National Water Prediction Service gauge API.
package nwps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/river-watch/internal/domain"
	"github.com/couchcryptid/river-watch/internal/observability"
)

const providerName = "nwps"

// Client implements domain.StageAuthority against the NWPS gauges endpoint.
// Callers treat every failure as "no official data"; the client only has to
// report them, never paper over them.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an NWPS gauge client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		metrics:    metrics,
		logger:     logger,
	}
}

// FloodCategories returns the official tier set for a USGS site. Missing
// tiers come back zero; completeness is the caller's judgment.
func (c *Client) FloodCategories(ctx context.Context, siteID string) (domain.FloodStageSet, error) {
	params := url.Values{"site.usgsId": {siteID}}
	fullURL := c.baseURL + "/gauges?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.FloodStageSet{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(providerName, "unavailable").Inc()
		return domain.FloodStageSet{}, fmt.Errorf("nwps gauge request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			c.metrics.UpstreamRequests.WithLabelValues(providerName, "rejected").Inc()
			return domain.FloodStageSet{}, domain.NewUpstreamRejected(providerName, resp.StatusCode, string(body))
		}
		c.metrics.UpstreamRequests.WithLabelValues(providerName, "unavailable").Inc()
		return domain.FloodStageSet{}, domain.NewUpstreamUnavailable(providerName, resp.StatusCode, string(body))
	}

	var gaugesResp response
	if err := json.NewDecoder(resp.Body).Decode(&gaugesResp); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(providerName, "unavailable").Inc()
		return domain.FloodStageSet{}, fmt.Errorf("decode response: %w", err)
	}
	c.metrics.UpstreamRequests.WithLabelValues(providerName, "success").Inc()

	if len(gaugesResp.Gauges) == 0 {
		return domain.FloodStageSet{}, nil
	}

	cat := gaugesResp.Gauges[0].Flood.Categories
	return domain.FloodStageSet{
		Action:   cat.Action.Stage,
		Minor:    cat.Minor.Stage,
		Moderate: cat.Moderate.Stage,
		Major:    cat.Major.Stage,
	}, nil
}

// NWPS API response types.

type response struct {
	Gauges []gauge `json:"gauges"`
}

type gauge struct {
	Flood struct {
		Categories categories `json:"categories"`
	} `json:"flood"`
}

type categories struct {
	Action   category `json:"action"`
	Minor    category `json:"minor"`
	Moderate category `json:"moderate"`
	Major    category `json:"major"`
}

type category struct {
	Stage float64 `json:"stage"`
}
