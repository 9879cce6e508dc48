package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// RealtimeDispatcher publishes in-app notifications to per-user Redis
// channels; the web tier subscribes and pushes to connected clients.
type RealtimeDispatcher struct {
	client *redis.Client
	prefix string
}

// NewRealtimeDispatcher creates the in-app dispatcher.
func NewRealtimeDispatcher(client *redis.Client, prefix string) *RealtimeDispatcher {
	return &RealtimeDispatcher{client: client, prefix: prefix}
}

// Name returns the channel identifier.
func (d *RealtimeDispatcher) Name() domain.NotificationChannel {
	return domain.ChannelRealtime
}

// Send publishes the payload to each recipient's channel. Recipients here are
// user ids, not addresses.
func (d *RealtimeDispatcher) Send(ctx context.Context, msg Message) error {
	if d.client == nil {
		return fmt.Errorf("redis client not configured")
	}

	payload, err := json.Marshal(map[string]any{
		"subject":   msg.Subject,
		"body":      msg.Body,
		"priority":  string(msg.Priority),
		"ticket_id": msg.TicketID,
		"sent_at":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode realtime payload: %w", err)
	}

	for _, userID := range msg.Recipients {
		if err := d.client.Publish(ctx, d.prefix+userID, payload).Err(); err != nil {
			return fmt.Errorf("publish to %s: %w", userID, err)
		}
	}
	return nil
}
