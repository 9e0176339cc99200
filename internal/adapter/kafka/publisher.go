// Package kafka publishes appended records to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/starford/epiledger/internal/models"
	"github.com/starford/epiledger/internal/observability"
)

// MessageWriter is the subset of *kafkago.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces one message per appended record.
// It implements recordservice.Publisher.
type Publisher struct {
	writer  MessageWriter
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a Kafka producer for topic on brokers.
func NewPublisher(brokers []string, topic string, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return NewPublisherWithWriter(w, clockwork.NewRealClock(), metrics, logger)
}

// NewPublisherWithWriter wires a publisher to an existing writer.
func NewPublisherWithWriter(w MessageWriter, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	return &Publisher{writer: w, clock: clock, metrics: metrics, logger: logger}
}

// PublishRecord sends r keyed by city so one city's records stay ordered
// within a partition.
func (p *Publisher) PublishRecord(ctx context.Context, r models.Record) error {
	msg, err := serializeRecord(r, uuid.NewString(), p.clock.Now())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.EventsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("kafka: publish record: %w", err)
	}
	p.metrics.EventsPublished.WithLabelValues("success").Inc()
	p.logger.Debug("record published", slog.String("city", r.City))
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeRecord marshals a record into a Kafka message.
func serializeRecord(r models.Record, eventID string, recordedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.City),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_id", Value: []byte(eventID)},
			{Key: "recorded_at", Value: []byte(recordedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
