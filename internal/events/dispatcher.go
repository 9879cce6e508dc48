package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher decouples event producers from the engine. Publish never blocks
// the caller on handler execution; CRUD callers only enqueue and return.
type Dispatcher interface {
	Publish(event Event)
	Subscribe(trigger domain.Trigger, handler EventHandler)
	Start()
	Stop()
}

// queueDispatcher consumes published events sequentially from a buffered
// queue so handler side effects stay deterministic per event.
type queueDispatcher struct {
	mu        sync.RWMutex
	listeners map[domain.Trigger][]EventHandler
	queue     chan Event
	logger    *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewQueueDispatcher creates a dispatcher with the given queue capacity.
func NewQueueDispatcher(capacity int, logger *zap.Logger) Dispatcher {
	if capacity <= 0 {
		capacity = 256
	}
	return &queueDispatcher{
		listeners: make(map[domain.Trigger][]EventHandler),
		queue:     make(chan Event, capacity),
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Publish enqueues the event. A full queue drops the event with an error log
// rather than blocking a request path.
func (d *queueDispatcher) Publish(event Event) {
	select {
	case d.queue <- event:
	default:
		d.logger.Error("event queue full, dropping event",
			zap.String("trigger", string(event.Trigger)),
			zap.String("event_id", event.ID))
	}
}

// Subscribe registers a handler for the given trigger.
func (d *queueDispatcher) Subscribe(trigger domain.Trigger, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[trigger] = append(d.listeners[trigger], handler)
}

// Start launches the consumer goroutine.
func (d *queueDispatcher) Start() {
	d.startOnce.Do(func() {
		go d.run()
	})
}

// Stop closes the queue and waits for the consumer to drain it.
func (d *queueDispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.queue)
		<-d.done
	})
}

func (d *queueDispatcher) run() {
	defer close(d.done)
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *queueDispatcher) deliver(event Event) {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Trigger]...)
	d.mu.RUnlock()

	ctx := context.Background()
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			// handler failures never abort delivery to the remaining handlers
			d.logger.Error("event handler failed",
				zap.String("trigger", string(event.Trigger)),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}
}
