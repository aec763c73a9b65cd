// riverctl runs one-shot river-risk queries from the command line using
// the same pipeline the server exposes over HTTP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/river-watch/internal/adapter/nwps"
	"github.com/couchcryptid/river-watch/internal/adapter/openmeteo"
	"github.com/couchcryptid/river-watch/internal/adapter/usgs"
	"github.com/couchcryptid/river-watch/internal/config"
	"github.com/couchcryptid/river-watch/internal/observability"
	"github.com/couchcryptid/river-watch/internal/service"
)

var (
	radiusMiles float64
	timeout     time.Duration
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "riverctl",
	Short: "Query river flood risk from the command line",
	Long:  "riverctl runs the station, flood-stage, and weather lookups directly against the upstream providers and prints JSON.",
}

var nearbyCmd = &cobra.Command{
	Use:   "nearby <lat> <lng>",
	Short: "List scored stations near a coordinate",
	Args:  cobra.ExactArgs(2),
	RunE:  runNearby,
}

var floodStageCmd = &cobra.Command{
	Use:   "flood-stage <siteId>",
	Short: "Show the flood-stage summary for a USGS site",
	Args:  cobra.ExactArgs(1),
	RunE:  runFloodStage,
}

var weatherCmd = &cobra.Command{
	Use:   "weather <lat> <lng>",
	Short: "Show current weather at a coordinate",
	Args:  cobra.ExactArgs(2),
	RunE:  runWeather,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall command timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log upstream requests to stderr")

	nearbyCmd.Flags().Float64VarP(&radiusMiles, "radius", "r", 10, "Search radius in miles")

	rootCmd.AddCommand(nearbyCmd, floodStageCmd, weatherCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newService builds a one-shot pipeline: no alert publishing, caches and
// the rate gate are per-invocation.
func newService() (*service.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var logOut io.Writer = io.Discard
	if verbose {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logOut, nil))
	metrics := observability.NewMetrics()

	stations := usgs.NewClient(cfg.USGSBaseURL, cfg.UpstreamTimeout, nil, metrics, logger)
	authority := nwps.NewClient(cfg.NWPSBaseURL, cfg.UpstreamTimeout, metrics, logger)
	weather := openmeteo.NewClient(cfg.WeatherBaseURL, cfg.UpstreamTimeout, metrics, logger)

	return service.New(stations, authority, weather, nil, service.Options{
		StationCacheTTL:    cfg.StationCacheTTL,
		WeatherCacheTTL:    cfg.WeatherCacheTTL,
		WeatherMinSpacing:  cfg.WeatherMinSpacing,
		AlertRiskThreshold: cfg.AlertRiskThreshold,
	}, metrics, logger), nil
}

func parseCoordinate(latArg, lngArg string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(latArg, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q", latArg)
	}
	lng, err := strconv.ParseFloat(lngArg, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q", lngArg)
	}
	return lat, lng, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runNearby(cmd *cobra.Command, args []string) error {
	lat, lng, err := parseCoordinate(args[0], args[1])
	if err != nil {
		return err
	}
	svc, err := newService()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	stations, err := svc.NearbyRivers(ctx, lat, lng, radiusMiles)
	if err != nil {
		return err
	}
	return printJSON(stations)
}

func runFloodStage(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	status, err := svc.FloodStage(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(status)
}

func runWeather(cmd *cobra.Command, args []string) error {
	lat, lng, err := parseCoordinate(args[0], args[1])
	if err != nil {
		return err
	}
	svc, err := newService()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	wx, err := svc.CurrentWeather(ctx, lat, lng)
	if err != nil {
		return err
	}
	return printJSON(wx)
}
