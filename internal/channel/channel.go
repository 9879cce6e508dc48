package channel

import (
	"context"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// Message is one rendered notification payload handed to a channel.
type Message struct {
	Recipients []string
	Subject    string
	Body       string
	Priority   domain.NotificationPriority
	TicketID   *string
}

// Dispatcher sends a rendered message through one delivery channel. Each
// implementation succeeds or fails independently of the others; the caller
// bounds Send with a timeout context.
type Dispatcher interface {
	Name() domain.NotificationChannel
	Send(ctx context.Context, msg Message) error
}

// Registry maps channel identifiers to their dispatcher implementations.
type Registry map[domain.NotificationChannel]Dispatcher

// NewRegistry indexes dispatchers by name.
func NewRegistry(dispatchers ...Dispatcher) Registry {
	registry := make(Registry, len(dispatchers))
	for _, d := range dispatchers {
		registry[d.Name()] = d
	}
	return registry
}
