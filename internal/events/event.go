package events

import (
	"time"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// Event is the single internal message type flowing through the engine:
// a trigger plus a free-form context consumed by rule conditions and
// template bindings.
type Event struct {
	ID         string         `json:"id"`
	Trigger    domain.Trigger `json:"trigger"`
	Context    map[string]any `json:"context"`
	ActorID    *string        `json:"actor_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
