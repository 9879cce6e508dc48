package channel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// WebhookDispatcher posts the full notification payload as JSON to a
// configured endpoint.
type WebhookDispatcher struct {
	url    string
	client *resty.Client
}

// NewWebhookDispatcher creates a generic webhook dispatcher.
func NewWebhookDispatcher(url string) *WebhookDispatcher {
	return &WebhookDispatcher{
		url:    url,
		client: resty.New(),
	}
}

// Name returns the channel identifier.
func (d *WebhookDispatcher) Name() domain.NotificationChannel {
	return domain.ChannelWebhook
}

// Send posts the message payload.
func (d *WebhookDispatcher) Send(ctx context.Context, msg Message) error {
	if d.url == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	payload := map[string]any{
		"subject":    msg.Subject,
		"body":       msg.Body,
		"priority":   string(msg.Priority),
		"recipients": msg.Recipients,
		"sent_at":    time.Now().UTC().Format(time.RFC3339),
	}
	if msg.TicketID != nil {
		payload["ticket_id"] = *msg.TicketID
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(d.url)
	if err != nil {
		return fmt.Errorf("webhook send failed: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("webhook request failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
