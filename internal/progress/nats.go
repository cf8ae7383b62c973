//go:build progress_nats
// +build progress_nats

package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSBus implements Bus over NATS, letting several CLI invocations
// (or a long-running batch coordinator) observe the same run's
// progress across process boundaries. Adapted from the teacher's
// internal/events NATSBus; JetStream persistence is dropped since
// progress events are transient status, not a durable event log
// (spec.md Non-goals: no persistence between runs).
type NATSBus struct {
	nc     *nats.Conn
	mu     sync.RWMutex
	subs   map[string]*nats.Subscription
	closed bool
	config NATSConfig
}

// NATSConfig configures the NATS progress bus.
type NATSConfig struct {
	URL           string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Subject:       "kigalisim.progress",
		MaxReconnects: 10,
		ReconnectWait: 2 * time.Second,
	}
}

// NewNATSBus connects to NATS and returns a Bus backed by it.
func NewNATSBus(cfg NATSConfig) (*NATSBus, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Subject == "" {
		cfg.Subject = "kigalisim.progress"
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("kigalisim progress bus"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("progress: nats connect: %w", err)
	}

	return &NATSBus{nc: nc, subs: make(map[string]*nats.Subscription), config: cfg}, nil
}

func (b *NATSBus) subject(topic string) string {
	if topic == "*" {
		return b.config.Subject + ".>"
	}
	return b.config.Subject + "." + topic
}

// Publish sends event to NATS under the configured subject.
func (b *NATSBus) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := event.Validate(); err != nil {
		return err
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	b.mu.RUnlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("progress: marshal event: %w", err)
	}
	if err := b.nc.Publish(b.subject(event.Type), data); err != nil {
		return fmt.Errorf("progress: publish: %w", err)
	}
	return nil
}

// Subscribe registers a handler for topic.
func (b *NATSBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrEmptyTopic
	}
	if handler == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}

	sub, err := b.nc.Subscribe(b.subject(topic), func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return
		}
		safeCall(handler, event)
	})
	if err != nil {
		return fmt.Errorf("progress: subscribe: %w", err)
	}
	b.subs[topic] = sub
	return nil
}

// Close unsubscribes everything and drains the NATS connection.
func (b *NATSBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, sub := range b.subs {
		sub.Unsubscribe()
	}
	b.subs = nil
	b.mu.Unlock()

	return b.nc.Drain()
}

var _ Bus = (*NATSBus)(nil)
