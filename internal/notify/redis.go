package notify

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"shortly/internal/errors"
	"shortly/internal/models"
)

// DefaultChannel is the pub/sub channel events go to when none is configured
const DefaultChannel = "shortly:events"

// RedisPublisher publishes lifecycle events on a Redis pub/sub channel.
// Redis never stores link state; subscribers only see notifications.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

var _ EventSink = (*RedisPublisher)(nil)

// NewRedisPublisher connects to redisURL, which may be a redis:// URL or a
// bare host:port.
func NewRedisPublisher(redisURL, channel string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		// not a URL; treat as host:port
		opt = &redis.Options{Addr: redisURL}
	}
	if channel == "" {
		channel = DefaultChannel
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to connect to Redis at %s", opt.Addr)
	}

	return &RedisPublisher{client: client, channel: channel}, nil
}

// Channel returns the pub/sub channel name
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Publish encodes event as JSON and sends it to the channel
func (p *RedisPublisher) Publish(ctx context.Context, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return errors.Wrapf(err, "failed to publish %s", event.Type)
	}
	return nil
}

// Close releases the connection pool
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
