package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/segmentio/kafka-go"
	"github.com/sensor-platform/alert-engine/internal/config"
	"github.com/sensor-platform/alert-engine/internal/logger"
	"github.com/sensor-platform/alert-engine/internal/models"
	"github.com/sensor-platform/alert-engine/internal/observability/metrics"
	"github.com/sensor-platform/alert-engine/internal/processor"
)

// KafkaConsumer reads sensor readings from a Kafka topic and feeds them into
// the rule engine. It is optional: the caller only starts it when brokers are
// configured.
type KafkaConsumer struct {
	reader *kafka.Reader
	engine *processor.Engine
	wg     sync.WaitGroup
}

// NewKafkaConsumer creates a consumer for the configured readings topic.
func NewKafkaConsumer(cfg config.KafkaConfig, engine *processor.Engine) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})

	return &KafkaConsumer{
		reader: reader,
		engine: engine,
	}
}

// Start launches the consume loop. The loop exits when the context is
// cancelled or the reader is closed.
func (c *KafkaConsumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		logger.Info().
			Str("topic", c.reader.Config().Topic).
			Str("group_id", c.reader.Config().GroupID).
			Msg("Kafka readings consumer started")

		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
					return
				}
				logger.Error().Err(err).Msg("Failed to read message from Kafka")
				continue
			}

			var reading models.Reading
			if err := json.Unmarshal(msg.Value, &reading); err != nil {
				logger.Warn().
					Err(err).
					Int64("offset", msg.Offset).
					Msg("Skipping malformed reading message")
				continue
			}

			if reading.DeviceID == "" {
				logger.Warn().
					Int64("offset", msg.Offset).
					Msg("Skipping reading message without device_id")
				continue
			}

			metrics.IncReadingsIngested("kafka")
			if err := c.engine.HandleReading(ctx, reading); err != nil {
				logger.Warn().
					Err(err).
					Str("device_sensor_id", reading.DeviceSensorID()).
					Msg("Failed to enqueue reading for evaluation")
			}
		}
	}()
}

// Stop closes the reader and waits for the consume loop to exit.
func (c *KafkaConsumer) Stop() {
	if err := c.reader.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close Kafka reader")
	}
	c.wg.Wait()
}
