package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stroke-code-server/internal/domain"
)

// RedisConfig configures Redis pub/sub delivery
type RedisConfig struct {
	URL     string
	Channel string
	Timeout time.Duration
}

// RedisNotifier publishes events as JSON on a Redis channel for paging
// integrations to subscribe to
type RedisNotifier struct {
	client  *redis.Client
	channel string
	timeout time.Duration
	logger  *logrus.Logger
}

// NewRedisNotifier creates a Redis notifier. The connection is established
// lazily so an unavailable Redis does not block startup.
func NewRedisNotifier(config RedisConfig, logger *logrus.Logger) (*RedisNotifier, error) {
	if config.Channel == "" {
		return nil, fmt.Errorf("redis channel is required")
	}
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	opts.DialTimeout = config.Timeout
	opts.WriteTimeout = config.Timeout

	return &RedisNotifier{
		client:  redis.NewClient(opts),
		channel: config.Channel,
		timeout: config.Timeout,
		logger:  logger,
	}, nil
}

// Notify publishes the event on the configured channel
func (n *RedisNotifier) Notify(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	receivers, err := n.client.Publish(ctx, n.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", n.channel, err)
	}

	n.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"channel":    n.channel,
		"receivers":  receivers,
	}).Info("Notification published")
	return nil
}

// Ping checks connectivity to Redis
func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
