package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/notify-relay/internal/model"
)

// Publisher publishes notification events to the broker channel.
type Publisher struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewPublisher creates a Publisher over an existing Redis client.
func NewPublisher(client *redis.Client, channel string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// Publish encodes the event and publishes it on the channel.
func (p *Publisher) Publish(ctx context.Context, event model.NotificationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	p.logger.Debug("event published",
		"channel", p.channel,
		"targeted", event.Targeted(),
	)
	return nil
}
