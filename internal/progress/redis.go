//go:build progress_redis
// +build progress_redis

package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBus implements Bus over Redis Pub/Sub, a lighter-weight
// alternative to NATSBus for deployments that already run Redis for
// internal/registry's CachedRegistry. Adapted from the teacher's
// internal/events RedisBus, dropping the Streams/persistence path for
// the same reason as NATSBus: progress events are transient.
type RedisBus struct {
	client  redis.UniversalClient
	prefix  string
	mu      sync.Mutex
	cancels []context.CancelFunc
	closed  bool
}

// RedisConfig configures the Redis progress bus.
type RedisConfig struct {
	Addrs    []string
	Password string
	DB       int
	Prefix   string
}

// DefaultRedisConfig returns sensible defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{Addrs: []string{"localhost:6379"}, Prefix: "kigalisim.progress"}
}

// NewRedisBus constructs a Bus backed by a Redis client.
func NewRedisBus(cfg RedisConfig) *RedisBus {
	if cfg.Prefix == "" {
		cfg.Prefix = "kigalisim.progress"
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisBus{client: client, prefix: cfg.Prefix}
}

func (b *RedisBus) channel(topic string) string {
	return b.prefix + "." + topic
}

// Publish publishes event on its type's Redis channel.
func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := event.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBusClosed
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("progress: marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(event.Type), data).Err(); err != nil {
		return fmt.Errorf("progress: publish: %w", err)
	}
	return nil
}

// Subscribe starts a background goroutine delivering messages on
// topic's channel to handler until ctx is cancelled or the bus closes.
func (b *RedisBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	if handler == nil {
		return ErrNilHandler
	}

	subCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		cancel()
		return ErrBusClosed
	}
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	pubsub := b.client.Subscribe(subCtx, b.channel(topic))
	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				safeCall(handler, event)
			}
		}
	}()
	return nil
}

// Close cancels every subscription and closes the Redis client.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	cancels := b.cancels
	b.cancels = nil
	b.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return b.client.Close()
}

var _ Bus = (*RedisBus)(nil)
