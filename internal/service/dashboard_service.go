package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/notification-engine/internal/domain"
	"github.com/spec-kit/notification-engine/internal/repository"
	apperrors "github.com/spec-kit/notification-engine/pkg/util"
)

// DashboardService exposes read-only rollups over alerts, violations,
// escalations and notification logs for operational UIs.
type DashboardService struct {
	alerts      repository.AlertRepository
	violations  repository.SlaViolationRepository
	escalations repository.EscalationRepository
	logs        repository.NotificationLogRepository
}

// NewDashboardService creates the service.
func NewDashboardService(
	alerts repository.AlertRepository,
	violations repository.SlaViolationRepository,
	escalations repository.EscalationRepository,
	logs repository.NotificationLogRepository,
) *DashboardService {
	return &DashboardService{
		alerts:      alerts,
		violations:  violations,
		escalations: escalations,
		logs:        logs,
	}
}

// ListAlerts pages through dashboard alerts.
func (s *DashboardService) ListAlerts(ctx context.Context, filter repository.AlertFilter) ([]domain.Alert, error) {
	alerts, err := s.alerts.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return alerts, nil
}

// ListViolations pages through SLA violations.
func (s *DashboardService) ListViolations(ctx context.Context, filter repository.ViolationFilter) ([]domain.SlaViolation, error) {
	violations, err := s.violations.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return violations, nil
}

// ListEscalations pages through escalations.
func (s *DashboardService) ListEscalations(ctx context.Context, filter repository.EscalationFilter) ([]domain.Escalation, error) {
	escalations, err := s.escalations.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return escalations, nil
}

// ListLogs pages through notification dispatch logs.
func (s *DashboardService) ListLogs(ctx context.Context, filter repository.LogFilter) ([]domain.NotificationLog, error) {
	logs, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return logs, nil
}

// AcknowledgeViolation clears a violation's active window so a later breach
// of the same type can raise a fresh violation.
func (s *DashboardService) AcknowledgeViolation(ctx context.Context, id string) error {
	if err := s.violations.Acknowledge(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("violation", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}
