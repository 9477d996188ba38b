// Package eventpub mirrors broadcast payloads onto Redis pub/sub so other
// FanVerse services (notification workers, archive consumers) can follow
// live matches without a websocket connection.
package eventpub

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// channelPrefix namespaces match channels: live.match.<matchId>.
const channelPrefix = "live.match."

// redisPublisher is the slice of the go-redis client we use; kept narrow so
// tests can fake it.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *goredis.IntCmd
}

// Publisher publishes match update payloads to Redis.
type Publisher struct {
	client redisPublisher
}

func NewPublisher(client *goredis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) PublishMatchUpdate(ctx context.Context, matchID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal match update: %w", err)
	}

	if err := p.client.Publish(ctx, channelPrefix+matchID, data).Err(); err != nil {
		return fmt.Errorf("failed to publish match update: %w", err)
	}
	return nil
}

// Noop satisfies domain.EventPublisher when no Redis is configured.
type Noop struct{}

func (Noop) PublishMatchUpdate(context.Context, string, any) error { return nil }
