package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/cty-prefix-service/internal/config"
	"github.com/couchcryptid/cty-prefix-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces table entries to a Kafka topic.
// It implements pipeline.Exporter.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Export serializes and publishes entries in a single WriteMessages call.
func (w *Writer) Export(ctx context.Context, entries []domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(entries))
	for i := range entries {
		msg, err := serializeToMessage(entries[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d entries to %s: %w", len(msgs), w.writer.Topic, err)
	}
	w.logger.Debug("entries written", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Entry into a Kafka message keyed by kind and
// key, so compacted topics keep the latest country set per key.
func serializeToMessage(e domain.Entry) (kafkago.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize entry %s: %w", e.Key, err)
	}
	return kafkago.Message{
		Key:   []byte(e.Kind + ":" + e.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(e.Kind)},
			{Key: "loaded_at", Value: []byte(e.LoadedAt.Format(time.RFC3339))},
		},
	}, nil
}
