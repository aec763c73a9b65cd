// Package kafka publishes high-risk station alerts to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/river-watch/internal/config"
	"github.com/couchcryptid/river-watch/internal/domain"
)

// AlertWriter produces flood-risk alerts. Publishing is best-effort: a
// broker outage degrades alerting, never the API response.
type AlertWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewAlertWriter creates a Kafka producer for the configured alert topic.
func NewAlertWriter(cfg *config.Config, logger *slog.Logger) *AlertWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &AlertWriter{writer: w, logger: logger}
}

// PublishAlerts serializes and publishes the given stations in a single
// WriteMessages call, keyed by site id so replays per site land in order.
func (w *AlertWriter) PublishAlerts(ctx context.Context, stations []domain.Station) error {
	if len(stations) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(stations))
	for i := range stations {
		msg, err := serializeToMessage(stations[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a scored station into an alert message.
func serializeToMessage(station domain.Station) (kafkago.Message, error) {
	data, err := json.Marshal(station)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize station alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(station.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "flood_status", Value: []byte(station.FloodStages.StatusFor(derefStage(station.Stage)))},
			{Key: "scored_at", Value: []byte(station.ScoredAt.Format(time.RFC3339))},
		},
	}, nil
}

func derefStage(stage *float64) float64 {
	if stage == nil {
		return 0
	}
	return *stage
}
