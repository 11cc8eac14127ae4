package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBus publishes gift events on a Redis pub/sub channel scoped to one
// deployment, so several server processes share a single feed.
type RedisBus struct {
	rdb     *redis.Client
	channel string
	log     *slog.Logger
}

// Channel returns the pub/sub channel name for an instance.
func Channel(instance string) string {
	return fmt.Sprintf("giftregistry:%s:gift_events", instance)
}

func NewRedisBus(opts *redis.Options, instance string, logger *slog.Logger) (*RedisBus, error) {
	if instance == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	return &RedisBus{
		rdb:     redis.NewClient(opts),
		channel: Channel(instance),
		log:     logger.With("component", "events"),
	}, nil
}

// NewRedisBusFromURL parses a redis:// URL.
func NewRedisBusFromURL(rawURL, instance string, logger *slog.Logger) (*RedisBus, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisBus(opts, instance, logger)
}

func (b *RedisBus) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

func (b *RedisBus) Close() error {
	return b.rdb.Close()
}

func (b *RedisBus) Publish(ctx context.Context, ev GiftEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal gift event: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish gift event: %w", err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so events
// published after it returns are delivered.
func (b *RedisBus) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to gift events: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	events := make(chan GiftEvent, 16)

	go func() {
		defer close(events)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev GiftEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.log.Warn("dropping malformed gift event", "error", err)
					continue
				}
				select {
				case events <- ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{events: events, cancel: cancel}, nil
}
