package channel

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// SlackDispatcher posts messages to a Slack incoming webhook.
type SlackDispatcher struct {
	webhookURL string
	client     *resty.Client
}

// NewSlackDispatcher creates a Slack dispatcher.
func NewSlackDispatcher(webhookURL string) *SlackDispatcher {
	return &SlackDispatcher{
		webhookURL: webhookURL,
		client:     resty.New(),
	}
}

// Name returns the channel identifier.
func (d *SlackDispatcher) Name() domain.NotificationChannel {
	return domain.ChannelSlack
}

// Send posts the message as Slack blocks.
func (d *SlackDispatcher) Send(ctx context.Context, msg Message) error {
	if d.webhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}

	payload := map[string]any{
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*%s*\n%s", msg.Subject, msg.Body),
				},
			},
		},
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(d.webhookURL)
	if err != nil {
		return fmt.Errorf("slack send failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("slack request failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
