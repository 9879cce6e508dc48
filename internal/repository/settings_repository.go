package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// SettingsRepository encapsulates per-user notification settings. Rows are
// created lazily on first write and upserted on update.
type SettingsRepository interface {
	Get(ctx context.Context, userID string) (*domain.UserNotificationSettings, error)
	Upsert(ctx context.Context, settings *domain.UserNotificationSettings) error
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository instantiates repository.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

// Get returns nil when the user has no stored row; callers fall back to
// domain.DefaultNotificationSettings.
func (r *settingsRepository) Get(ctx context.Context, userID string) (*domain.UserNotificationSettings, error) {
	const query = `
        SELECT user_id, email_enabled, slack_enabled, teams_enabled, webhook_enabled, realtime_enabled,
               email_address, slack_handle, teams_handle, webhook_url, preferences, created_at, updated_at
        FROM user_notification_settings WHERE user_id=$1`
	var (
		settings    domain.UserNotificationSettings
		preferences []byte
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&settings.UserID,
		&settings.EmailEnabled,
		&settings.SlackEnabled,
		&settings.TeamsEnabled,
		&settings.WebhookEnabled,
		&settings.RealtimeEnabled,
		&settings.EmailAddress,
		&settings.SlackHandle,
		&settings.TeamsHandle,
		&settings.WebhookURL,
		&preferences,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(preferences) > 0 {
		if err := json.Unmarshal(preferences, &settings.Preferences); err != nil {
			return nil, fmt.Errorf("decode preferences for user %s: %w", userID, err)
		}
	}
	return &settings, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, settings *domain.UserNotificationSettings) error {
	preferences, err := json.Marshal(settings.Preferences)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	const query = `
        INSERT INTO user_notification_settings
            (user_id, email_enabled, slack_enabled, teams_enabled, webhook_enabled, realtime_enabled,
             email_address, slack_handle, teams_handle, webhook_url, preferences)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        ON CONFLICT (user_id) DO UPDATE SET
            email_enabled=EXCLUDED.email_enabled,
            slack_enabled=EXCLUDED.slack_enabled,
            teams_enabled=EXCLUDED.teams_enabled,
            webhook_enabled=EXCLUDED.webhook_enabled,
            realtime_enabled=EXCLUDED.realtime_enabled,
            email_address=EXCLUDED.email_address,
            slack_handle=EXCLUDED.slack_handle,
            teams_handle=EXCLUDED.teams_handle,
            webhook_url=EXCLUDED.webhook_url,
            preferences=EXCLUDED.preferences,
            updated_at=NOW()
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		settings.UserID,
		settings.EmailEnabled,
		settings.SlackEnabled,
		settings.TeamsEnabled,
		settings.WebhookEnabled,
		settings.RealtimeEnabled,
		settings.EmailAddress,
		settings.SlackHandle,
		settings.TeamsHandle,
		settings.WebhookURL,
		preferences,
	).Scan(&settings.CreatedAt, &settings.UpdatedAt)
}
