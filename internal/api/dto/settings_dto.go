package dto

import (
	"time"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// SettingsRequest payload for the user settings upsert.
type SettingsRequest struct {
	EmailEnabled    bool              `json:"email_enabled"`
	SlackEnabled    bool              `json:"slack_enabled"`
	TeamsEnabled    bool              `json:"teams_enabled"`
	WebhookEnabled  bool              `json:"webhook_enabled"`
	RealtimeEnabled bool              `json:"realtime_enabled"`
	EmailAddress    string            `json:"email_address"`
	SlackHandle     string            `json:"slack_handle"`
	TeamsHandle     string            `json:"teams_handle"`
	WebhookURL      string            `json:"webhook_url"`
	Preferences     map[string]string `json:"preferences"`
}

// ToDomain maps the request onto a settings row for userID.
func (r SettingsRequest) ToDomain(userID string) domain.UserNotificationSettings {
	prefs := r.Preferences
	if prefs == nil {
		prefs = map[string]string{}
	}
	return domain.UserNotificationSettings{
		UserID:          userID,
		EmailEnabled:    r.EmailEnabled,
		SlackEnabled:    r.SlackEnabled,
		TeamsEnabled:    r.TeamsEnabled,
		WebhookEnabled:  r.WebhookEnabled,
		RealtimeEnabled: r.RealtimeEnabled,
		EmailAddress:    r.EmailAddress,
		SlackHandle:     r.SlackHandle,
		TeamsHandle:     r.TeamsHandle,
		WebhookURL:      r.WebhookURL,
		Preferences:     prefs,
	}
}

// SettingsResponse represents stored (or default) user settings.
type SettingsResponse struct {
	UserID          string            `json:"user_id"`
	EmailEnabled    bool              `json:"email_enabled"`
	SlackEnabled    bool              `json:"slack_enabled"`
	TeamsEnabled    bool              `json:"teams_enabled"`
	WebhookEnabled  bool              `json:"webhook_enabled"`
	RealtimeEnabled bool              `json:"realtime_enabled"`
	EmailAddress    string            `json:"email_address"`
	SlackHandle     string            `json:"slack_handle"`
	TeamsHandle     string            `json:"teams_handle"`
	WebhookURL      string            `json:"webhook_url"`
	Preferences     map[string]string `json:"preferences"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NewSettingsResponse maps a settings row into its API shape.
func NewSettingsResponse(s domain.UserNotificationSettings) SettingsResponse {
	return SettingsResponse{
		UserID:          s.UserID,
		EmailEnabled:    s.EmailEnabled,
		SlackEnabled:    s.SlackEnabled,
		TeamsEnabled:    s.TeamsEnabled,
		WebhookEnabled:  s.WebhookEnabled,
		RealtimeEnabled: s.RealtimeEnabled,
		EmailAddress:    s.EmailAddress,
		SlackHandle:     s.SlackHandle,
		TeamsHandle:     s.TeamsHandle,
		WebhookURL:      s.WebhookURL,
		Preferences:     s.Preferences,
		UpdatedAt:       s.UpdatedAt,
	}
}
