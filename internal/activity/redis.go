package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diewo77/go-docflow/internal/platform/logger"
)

const publishTimeout = 2 * time.Second

// RedisPublisher broadcasts events as JSON on a pub/sub channel for interested parties.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	log     *logger.Logger
}

// NewRedisPublisher connects to redisURL and checks the connection.
func NewRedisPublisher(redisURL, channel string, log *logger.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisPublisherWithClient(client, channel, log), nil
}

// NewRedisPublisherWithClient wraps an existing client.
func NewRedisPublisherWithClient(client *redis.Client, channel string, log *logger.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, log: log.With("recorder", "redis", "channel", channel)}
}

func (p *RedisPublisher) Record(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("activity event not encoded", "kind", ev.Kind, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.log.Warn("activity event not published", "kind", ev.Kind, "entity_id", ev.EntityID, "error", err)
	}
}

// Close releases the underlying client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
