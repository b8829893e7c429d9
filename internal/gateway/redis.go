// Package gateway carries sync events between sessions over a Redis channel.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/invest-access/internal/events"
	"github.com/spec-kit/invest-access/internal/observability"
)

// DefaultChannel is used when no channel name is configured.
const DefaultChannel = "dashboard-sync"

// Sink receives events that arrived from other sessions.
type Sink interface {
	Deliver(ctx context.Context, e events.Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e events.Event)

func (f SinkFunc) Deliver(ctx context.Context, e events.Event) { f(ctx, e) }

// RedisGateway publishes events to and receives events from one channel.
type RedisGateway struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisGateway builds a gateway on channel.
func NewRedisGateway(client *redis.Client, channel string, logger *zap.Logger) *RedisGateway {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisGateway{client: client, channel: channel, logger: observability.OrNop(logger)}
}

// Channel returns the channel name.
func (g *RedisGateway) Channel() string {
	return g.channel
}

// Forward publishes e. It satisfies events.Forwarder.
func (g *RedisGateway) Forward(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode sync event: %w", err)
	}
	if err := g.client.Publish(ctx, g.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish sync event: %w", err)
	}
	return nil
}

// Subscription is a live listener started by Listen.
type Subscription struct {
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

// Done is closed when the listener stops.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err reports why the listener stopped, nil after Close.
func (s *Subscription) Err() error {
	<-s.done
	return s.err
}

// Close stops the listener and waits for it to exit.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.pubsub.Close()
	})
	<-s.done
	return err
}

// Listen subscribes to the channel and hands every decoded event whose
// origin differs from origin to sink, in arrival order. It returns once
// the subscription is confirmed. Malformed payloads are logged and skipped.
func (g *RedisGateway) Listen(ctx context.Context, origin string, sink Sink) (*Subscription, error) {
	pubsub := g.client.Subscribe(ctx, g.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", g.channel, err)
	}

	listenCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{pubsub: pubsub, cancel: cancel, done: make(chan struct{})}
	go g.loop(listenCtx, origin, sink, sub)
	return sub, nil
}

func (g *RedisGateway) loop(ctx context.Context, origin string, sink Sink, sub *Subscription) {
	defer close(sub.done)
	ch := sub.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				if ctx.Err() == nil {
					sub.err = fmt.Errorf("channel %s closed", g.channel)
				}
				return
			}
			var e events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				g.logger.Warn("dropping malformed sync payload", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if origin != "" && e.Origin == origin {
				continue
			}
			sink.Deliver(ctx, e)
		}
	}
}
