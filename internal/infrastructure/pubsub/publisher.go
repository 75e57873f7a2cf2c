package pubsub

import (
	"context"
	"sync"

	"foodbridge-backend/internal/domain"
)

// Publisher delivers an event to the subscribers of a room topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, ev domain.Event) error
}

// Message is one delivery captured by Recorder.
type Message struct {
	Topic string
	Event domain.Event
}

// Recorder keeps published events in memory. Used when no broker is configured and in tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Publish(_ context.Context, topic string, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Topic: topic, Event: ev})
	return nil
}

// Messages returns a copy of everything published so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Topics returns, in publish order, the topics that received events about entityID.
func (r *Recorder) Topics(entityID string) []string {
	var topics []string
	for _, m := range r.Messages() {
		if m.Event.EntityID.String() == entityID {
			topics = append(topics, m.Topic)
		}
	}
	return topics
}
