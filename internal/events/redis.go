package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultChannel is the Redis pub/sub channel engine events are forwarded to.
const DefaultChannel = "signal-engine:events"

// RedisPublisher forwards bus events to a Redis pub/sub channel so external
// consumers (dashboards, order routers) can react without polling the API.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewRedisPublisher creates a publisher for the given Redis client.
// An empty channel falls back to DefaultChannel.
func NewRedisPublisher(client *redis.Client, channel string, logger zerolog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logger.With().Str("component", "RedisPublisher").Logger(),
	}
}

// Attach subscribes the publisher to every event on the bus.
func (p *RedisPublisher) Attach(bus *EventBus) {
	bus.SubscribeAll(p.forward)
}

func (p *RedisPublisher) forward(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Str("event_type", string(event.Type)).Msg("Failed to marshal event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn().Err(err).Str("event_type", string(event.Type)).Msg("Failed to publish event to Redis")
	}
}
