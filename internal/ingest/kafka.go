package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds consumer-group settings for the stream transport.
type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
}

// KafkaTransport adapts a kafka-go consumer group to the Transport interface.
type KafkaTransport struct {
	reader *kafka.Reader
	logger *slog.Logger
}

// NewKafkaTransport creates a consumer-group reader over the configured
// topics. Offsets start at the earliest available message for a new group.
func NewKafkaTransport(cfg KafkaConfig, logger *slog.Logger) *KafkaTransport {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	})
	return &KafkaTransport{reader: reader, logger: logger}
}

// Receive blocks until the next message arrives and decodes its JSON value.
// A malformed payload is reported as an error; the consumer loop logs it and
// keeps receiving.
func (t *KafkaTransport) Receive(ctx context.Context) (map[string]any, error) {
	msg, err := t.reader.ReadMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("kafka: read message: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(msg.Value, &fields); err != nil {
		return nil, fmt.Errorf("kafka: decode message from %s: %w", msg.Topic, err)
	}
	return fields, nil
}

// Close releases the underlying consumer-group connection.
func (t *KafkaTransport) Close() error {
	if err := t.reader.Close(); err != nil {
		return fmt.Errorf("kafka: close reader: %w", err)
	}
	return nil
}
