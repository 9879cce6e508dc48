package domain

import "time"

// UserNotificationSettings stores per-user channel enablement and destination
// identifiers. One row per user, created lazily on first write.
type UserNotificationSettings struct {
	UserID          string
	EmailEnabled    bool
	SlackEnabled    bool
	TeamsEnabled    bool
	WebhookEnabled  bool
	RealtimeEnabled bool
	EmailAddress    string
	SlackHandle     string
	TeamsHandle     string
	WebhookURL      string
	Preferences     map[string]string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DefaultNotificationSettings returns the implicit settings for a user without
// a stored row: every channel enabled, destinations from the user directory.
func DefaultNotificationSettings(userID string) UserNotificationSettings {
	return UserNotificationSettings{
		UserID:          userID,
		EmailEnabled:    true,
		SlackEnabled:    true,
		TeamsEnabled:    true,
		WebhookEnabled:  false,
		RealtimeEnabled: true,
		Preferences:     map[string]string{},
	}
}

// ChannelEnabled reports whether the user accepts delivery on the channel.
func (s UserNotificationSettings) ChannelEnabled(ch NotificationChannel) bool {
	switch ch {
	case ChannelEmail:
		return s.EmailEnabled
	case ChannelSlack:
		return s.SlackEnabled
	case ChannelTeams:
		return s.TeamsEnabled
	case ChannelWebhook:
		return s.WebhookEnabled
	case ChannelRealtime:
		return s.RealtimeEnabled
	}
	return false
}
