package channel

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// TeamsDispatcher posts MessageCard payloads to a Microsoft Teams incoming
// webhook.
type TeamsDispatcher struct {
	webhookURL string
	client     *resty.Client
}

// NewTeamsDispatcher creates a Teams dispatcher.
func NewTeamsDispatcher(webhookURL string) *TeamsDispatcher {
	return &TeamsDispatcher{
		webhookURL: webhookURL,
		client:     resty.New(),
	}
}

// Name returns the channel identifier.
func (d *TeamsDispatcher) Name() domain.NotificationChannel {
	return domain.ChannelTeams
}

// Send posts the message as a MessageCard.
func (d *TeamsDispatcher) Send(ctx context.Context, msg Message) error {
	if d.webhookURL == "" {
		return fmt.Errorf("teams webhook URL not configured")
	}

	payload := map[string]any{
		"@type":    "MessageCard",
		"@context": "http://schema.org/extensions",
		"title":    msg.Subject,
		"text":     msg.Body,
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(d.webhookURL)
	if err != nil {
		return fmt.Errorf("teams send failed: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("teams request failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
