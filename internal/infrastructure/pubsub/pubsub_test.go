package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"foodbridge-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func sampleEvent() domain.Event {
	return domain.Event{
		EntityType: domain.EntityPickupRequest,
		EntityID:   uuid.New(),
		ActorID:    uuid.New(),
		Operation:  "approve",
		NewState:   "approved",
		Timestamp:  time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestRedisPublisher_DeliversToRoomChannel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	p := &RedisPublisher{Client: rdb}
	ctx := context.Background()
	sub := p.Subscribe(ctx, "org:abc")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	ev := sampleEvent()
	require.NoError(t, p.Publish(ctx, "org:abc", ev))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rooms:org:abc", msg.Channel)

	var got domain.Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, ev.EntityID, got.EntityID)
	assert.Equal(t, "approved", got.NewState)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_KeysByRoom(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{Writer: w}
	ev := sampleEvent()

	require.NoError(t, p.Publish(context.Background(), "pickup_request:"+ev.EntityID.String(), ev))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "pickup_request:"+ev.EntityID.String(), string(w.msgs[0].Key))
	assert.Equal(t, ev.Timestamp, w.msgs[0].Time)
	assert.Equal(t, "room", w.msgs[0].Headers[0].Key)
}

func TestKafkaPublisher_CarriesTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "pickups.transition")
	defer span.End()

	w := &fakeWriter{}
	p := &KafkaPublisher{Writer: w}
	require.NoError(t, p.Publish(ctx, "listings:browse", sampleEvent()))
	require.Len(t, w.msgs, 1)

	var traceparent string
	for _, h := range w.msgs[0].Headers {
		if h.Key == "traceparent" {
			traceparent = string(h.Value)
		}
	}
	require.NotEmpty(t, traceparent, "headers: %v", w.msgs[0].Headers)
	assert.Contains(t, traceparent, span.SpanContext().TraceID().String())

	got := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), w.msgs[0]))
	assert.Equal(t, span.SpanContext().TraceID(), got.TraceID())
}

func TestKafkaPublisher_NoSpanNoTraceHeaders(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{Writer: w}
	require.NoError(t, p.Publish(context.Background(), "listings:browse", sampleEvent()))
	for _, h := range w.msgs[0].Headers {
		assert.NotEqual(t, "traceparent", h.Key)
	}
}

func TestKafkaPublisher_WrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{Writer: &fakeWriter{err: boom}}
	err := p.Publish(context.Background(), "listings:browse", sampleEvent())
	assert.ErrorIs(t, err, boom)
}

func TestRecorder_Topics(t *testing.T) {
	r := &Recorder{}
	ev := sampleEvent()
	require.NoError(t, r.Publish(context.Background(), "a", ev))
	require.NoError(t, r.Publish(context.Background(), "b", sampleEvent()))
	assert.Equal(t, []string{"a"}, r.Topics(ev.EntityID.String()))
	assert.Len(t, r.Messages(), 2)
}
