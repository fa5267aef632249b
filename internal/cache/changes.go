package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"matchpredict/ingestion/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ChangeBus carries prediction change events over a Redis channel
type ChangeBus struct {
	client  *redis.Client
	channel string
}

// NewChangeBus creates a bus on channel
func NewChangeBus(client *redis.Client, channel string) *ChangeBus {
	return &ChangeBus{client: client, channel: channel}
}

// Publish sends ev to every subscriber
func (b *ChangeBus) Publish(ctx context.Context, ev models.ChangeEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

// Subscribe returns a channel of change events that closes when ctx is done
func (b *ChangeBus) Subscribe(ctx context.Context) (<-chan models.ChangeEvent, error) {
	sub := b.client.Subscribe(ctx, b.channel)

	// ensures the subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan models.ChangeEvent, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var ev models.ChangeEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					log.Warn().Err(err).Msg("Bad change event payload")
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
