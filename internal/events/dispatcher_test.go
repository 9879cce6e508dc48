package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/notification-engine/internal/domain"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewQueueDispatcher(8, zap.NewNop())

	received := make(chan Event, 1)
	d.Subscribe(domain.TriggerTicketCreated, func(ctx context.Context, event Event) error {
		received <- event
		return nil
	})
	d.Start()
	defer d.Stop()

	d.Publish(Event{ID: "e-1", Trigger: domain.TriggerTicketCreated, Context: map[string]any{"k": "v"}})

	select {
	case event := <-received:
		assert.Equal(t, "e-1", event.ID)
		assert.Equal(t, "v", event.Context["k"])
	case <-time.After(2 * time.Second):
		t.Fatal("event never delivered")
	}
}

func TestDispatcherIgnoresUnsubscribedTriggers(t *testing.T) {
	d := NewQueueDispatcher(8, zap.NewNop())

	var mu sync.Mutex
	var got []string
	d.Subscribe(domain.TriggerTicketCreated, func(ctx context.Context, event Event) error {
		mu.Lock()
		got = append(got, event.ID)
		mu.Unlock()
		return nil
	})
	d.Start()

	d.Publish(Event{ID: "e-1", Trigger: domain.TriggerTicketResolved})
	d.Publish(Event{ID: "e-2", Trigger: domain.TriggerTicketCreated})
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"e-2"}, got)
}

func TestDispatcherHandlerErrorDoesNotStopOthers(t *testing.T) {
	d := NewQueueDispatcher(8, zap.NewNop())

	var mu sync.Mutex
	var calls []string
	d.Subscribe(domain.TriggerManual, func(ctx context.Context, event Event) error {
		mu.Lock()
		calls = append(calls, "first")
		mu.Unlock()
		return errors.New("boom")
	})
	d.Subscribe(domain.TriggerManual, func(ctx context.Context, event Event) error {
		mu.Lock()
		calls = append(calls, "second")
		mu.Unlock()
		return nil
	})
	d.Start()

	d.Publish(Event{ID: "e-1", Trigger: domain.TriggerManual})
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDispatcherStopDrainsQueue(t *testing.T) {
	d := NewQueueDispatcher(16, zap.NewNop())

	var mu sync.Mutex
	count := 0
	d.Subscribe(domain.TriggerManual, func(ctx context.Context, event Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})
	d.Start()

	for i := 0; i < 10; i++ {
		d.Publish(Event{ID: "e", Trigger: domain.TriggerManual})
	}
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 10, count)
}

func TestDispatcherFullQueueDropsWithoutBlocking(t *testing.T) {
	d := NewQueueDispatcher(1, zap.NewNop())
	// never started: the queue holds one event, further publishes must not block

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Publish(Event{ID: "e", Trigger: domain.TriggerManual})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full queue")
	}

	require.NotPanics(t, func() { d.Start(); d.Stop() })
}
