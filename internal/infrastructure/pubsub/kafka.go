package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"foodbridge-backend/internal/domain"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// MessageWriter is the subset of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards room events to a Kafka topic for downstream consumers
// (push notification workers, analytics). The room is the message key so one
// room's events stay ordered within a partition.
type KafkaPublisher struct {
	Writer MessageWriter
}

// NewKafkaWriter builds the writer used by KafkaPublisher.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, ev domain.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(topic),
		Value: b,
		Headers: append([]kafka.Header{
			{Key: "room", Value: []byte(topic)},
			{Key: "entity_type", Value: []byte(ev.EntityType)},
		}, traceHeaders(ctx)...),
		Time: ev.Timestamp,
	}
	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", topic, err)
	}
	return nil
}

// traceHeaders carries the caller's span context (traceparent, baggage) so consumers
// continue the trace that committed the change.
func traceHeaders(ctx context.Context) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := make([]kafka.Header, 0, len(carrier))
	for _, k := range carrier.Keys() {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(carrier.Get(k))})
	}
	return headers
}

// ExtractTraceContext is the consumer side of traceHeaders.
func ExtractTraceContext(ctx context.Context, msg kafka.Message) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range msg.Headers {
		carrier.Set(h.Key, string(h.Value))
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

func (p *KafkaPublisher) Close() error {
	return p.Writer.Close()
}

// KafkaPinger dials the first reachable broker for the health endpoint.
type KafkaPinger struct {
	Brokers []string
}

func (p KafkaPinger) Ping(ctx context.Context) error {
	var lastErr error = fmt.Errorf("kafka: no brokers configured")
	for _, addr := range p.Brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	return lastErr
}
