package progress

import (
	"context"
	"sync"
	"testing"
)

func TestInMemoryBusDispatchesToMatchingTopic(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	var mu sync.Mutex
	var received []Event
	if err := bus.Subscribe(ctx, EventYearCompleted, func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := bus.Publish(ctx, NewEvent(EventYearCompleted, "bau", 0, 1)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bus.Publish(ctx, NewEvent(EventTrialFailed, "bau", 0, "boom")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected 1 matching event, got %d", len(received))
	}
	if received[0].Scenario != "bau" {
		t.Errorf("scenario = %q, want bau", received[0].Scenario)
	}
}

func TestInMemoryBusWildcardSubscriber(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	var count int
	var mu sync.Mutex
	bus.Subscribe(ctx, "*", func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(ctx, NewEvent(EventScenarioStarted, "s", 0, nil))
	bus.Publish(ctx, NewEvent(EventScenarioCompleted, "s", 0, nil))

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Fatalf("wildcard subscriber saw %d events, want 2", count)
	}
}

func TestInMemoryBusClosedRejectsPublish(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()
	if err := bus.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := bus.Publish(ctx, NewEvent(EventScenarioStarted, "s", 0, nil)); err != ErrBusClosed {
		t.Fatalf("expected ErrBusClosed, got %v", err)
	}
}

func TestNoopBusDiscardsEvents(t *testing.T) {
	bus := NewNoopBus()
	ctx := context.Background()
	if err := bus.Publish(ctx, NewEvent(EventScenarioStarted, "s", 0, nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bus.Subscribe(ctx, EventScenarioStarted, func(Event) {}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
}

func TestEventValidateRejectsEmptyType(t *testing.T) {
	e := Event{Scenario: "s"}
	if err := e.Validate(); err != ErrEmptyEventType {
		t.Fatalf("expected ErrEmptyEventType, got %v", err)
	}
}
