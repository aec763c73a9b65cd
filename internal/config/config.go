package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default upstream endpoints. Overridable for tests and regional mirrors.
const (
	defaultUSGSBaseURL    = "https://waterservices.usgs.gov/nwis/iv/"
	defaultNWPSBaseURL    = "https://api.water.noaa.gov/nwps/v1"
	defaultWeatherBaseURL = "https://api.open-meteo.com/v1/forecast"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upstream providers.
	USGSBaseURL     string
	NWPSBaseURL     string
	WeatherBaseURL  string
	UpstreamTimeout time.Duration

	// Cache TTLs per data class.
	StationCacheTTL time.Duration
	WeatherCacheTTL time.Duration

	// Minimum spacing between calls to the weather endpoint class.
	WeatherMinSpacing time.Duration

	// Kafka risk-alert publishing (feature-flagged via KAFKA_BROKERS).
	KafkaBrokers       []string
	KafkaAlertTopic    string
	KafkaEnabled       bool
	AlertRiskThreshold float64
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	upstreamTimeout, err := parseDuration("UPSTREAM_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	stationTTL, err := parseDuration("STATION_CACHE_TTL", "2m")
	if err != nil {
		return nil, err
	}
	weatherTTL, err := parseDuration("WEATHER_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}
	weatherSpacing, err := parseDuration("WEATHER_MIN_SPACING", "1s")
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		USGSBaseURL:     envOrDefault("USGS_BASE_URL", defaultUSGSBaseURL),
		NWPSBaseURL:     envOrDefault("NWPS_BASE_URL", defaultNWPSBaseURL),
		WeatherBaseURL:  envOrDefault("WEATHER_BASE_URL", defaultWeatherBaseURL),
		UpstreamTimeout: upstreamTimeout,

		StationCacheTTL:   stationTTL,
		WeatherCacheTTL:   weatherTTL,
		WeatherMinSpacing: weatherSpacing,

		KafkaBrokers:       brokers,
		KafkaAlertTopic:    envOrDefault("KAFKA_ALERT_TOPIC", "flood-risk-alerts"),
		KafkaEnabled:       kafkaEnabled,
		AlertRiskThreshold: parseAlertThreshold(),
	}

	if cfg.USGSBaseURL == "" {
		return nil, errors.New("USGS_BASE_URL is required")
	}
	if cfg.NWPSBaseURL == "" {
		return nil, errors.New("NWPS_BASE_URL is required")
	}
	if cfg.WeatherBaseURL == "" {
		return nil, errors.New("WEATHER_BASE_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseAlertThreshold() float64 {
	if s := os.Getenv("ALERT_RISK_THRESHOLD"); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil && v >= 0 && v <= 100 {
			return v
		}
	}
	return 70
}
