// Package events publishes order lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("events")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one JSON message per event, keyed by order id so that
// all events of an order land on the same partition.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaWriter builds the writer for brokers, a comma-separated list.
func NewKafkaWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaPublisher wraps w.
func NewKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Publish implements port.OrderEvents.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.OrderEvent) error {
	ctx, span := tracer.Start(ctx, "Kafka.Publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.type", event.Type),
		attribute.String("order.id", event.OrderID),
	)

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return &domain.ErrExternalService{Service: "kafka", Err: err}
	}
	return nil
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
