package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/notification-engine/internal/domain"
	"github.com/spec-kit/notification-engine/internal/repository"
	apperrors "github.com/spec-kit/notification-engine/pkg/util"
)

// SettingsService manages per-user notification preferences.
type SettingsService struct {
	settings repository.SettingsRepository
	logger   *zap.Logger
}

// NewSettingsService creates the service.
func NewSettingsService(settings repository.SettingsRepository, logger *zap.Logger) *SettingsService {
	return &SettingsService{settings: settings, logger: logger}
}

// Get returns the stored settings, falling back to defaults for users who
// never saved any.
func (s *SettingsService) Get(ctx context.Context, userID string) (*domain.UserNotificationSettings, error) {
	stored, err := s.settings.Get(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if stored == nil {
		defaults := domain.DefaultNotificationSettings(userID)
		return &defaults, nil
	}
	return stored, nil
}

// Upsert stores the settings, creating the row lazily on first write.
func (s *SettingsService) Upsert(ctx context.Context, settings domain.UserNotificationSettings) (*domain.UserNotificationSettings, error) {
	if settings.UserID == "" {
		return nil, apperrors.NewValidationError("user_id required", nil)
	}
	if settings.Preferences == nil {
		settings.Preferences = map[string]string{}
	}
	if err := s.settings.Upsert(ctx, &settings); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Debug("notification settings updated", zap.String("user_id", settings.UserID))
	return &settings, nil
}
