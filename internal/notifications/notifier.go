// Package notifications provides real-time event delivery to feed subscribers.
package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"

	"forum/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// BroadcastChannel is the Redis channel every API instance publishes to.
const BroadcastChannel = "events:broadcast"

// Notifier publishes events into Redis so every instance's hub sees them.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends the event on the broadcast channel.
func (n *Notifier) Publish(ctx context.Context, event Event) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := event.Encode()
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, BroadcastChannel, payload).Err()
}

// StartSubscriber subscribes to the broadcast channel and calls onMessage for
// each payload until ctx is cancelled.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, BroadcastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in event subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
