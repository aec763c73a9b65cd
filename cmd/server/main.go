package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/river-watch/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/river-watch/internal/adapter/kafka"
	"github.com/couchcryptid/river-watch/internal/adapter/nwps"
	"github.com/couchcryptid/river-watch/internal/adapter/openmeteo"
	"github.com/couchcryptid/river-watch/internal/adapter/usgs"
	"github.com/couchcryptid/river-watch/internal/config"
	"github.com/couchcryptid/river-watch/internal/observability"
	"github.com/couchcryptid/river-watch/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	stations := usgs.NewClient(cfg.USGSBaseURL, cfg.UpstreamTimeout, nil, metrics, logger)
	authority := nwps.NewClient(cfg.NWPSBaseURL, cfg.UpstreamTimeout, metrics, logger)
	weather := openmeteo.NewClient(cfg.WeatherBaseURL, cfg.UpstreamTimeout, metrics, logger)

	// Alert publishing is feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED.
	var alerts service.AlertPublisher
	var alertWriter *kafkaadapter.AlertWriter
	if cfg.KafkaEnabled {
		alertWriter = kafkaadapter.NewAlertWriter(cfg, logger)
		alerts = alertWriter
		logger.Info("risk alert publishing enabled", "topic", cfg.KafkaAlertTopic, "threshold", cfg.AlertRiskThreshold)
	} else {
		logger.Info("risk alert publishing disabled")
	}

	svc := service.New(stations, authority, weather, alerts, service.Options{
		StationCacheTTL:    cfg.StationCacheTTL,
		WeatherCacheTTL:    cfg.WeatherCacheTTL,
		WeatherMinSpacing:  cfg.WeatherMinSpacing,
		AlertRiskThreshold: cfg.AlertRiskThreshold,
	}, metrics, logger)

	srv := httpapi.NewServer(cfg.HTTPAddr, svc, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if alertWriter != nil {
		if err := alertWriter.Close(); err != nil {
			logger.Error("alert writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
