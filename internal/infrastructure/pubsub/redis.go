package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"foodbridge-backend/internal/domain"

	"github.com/redis/go-redis/v9"
)

const roomChannelPrefix = "rooms:"

// RoomChannel is the Redis channel that carries a room topic.
func RoomChannel(topic string) string {
	return roomChannelPrefix + topic
}

// RedisPublisher publishes room events over Redis pub/sub for the realtime stream.
type RedisPublisher struct {
	Client *redis.Client
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, ev domain.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.Client.Publish(ctx, RoomChannel(topic), b).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe opens a subscription on the room's channel. Caller closes it.
func (p *RedisPublisher) Subscribe(ctx context.Context, topic string) *redis.PubSub {
	return p.Client.Subscribe(ctx, RoomChannel(topic))
}
