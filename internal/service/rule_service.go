package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/notification-engine/internal/domain"
	"github.com/spec-kit/notification-engine/internal/repository"
	apperrors "github.com/spec-kit/notification-engine/pkg/util"
)

// RuleService handles operator CRUD over notification rules.
type RuleService struct {
	rules  repository.RuleRepository
	logger *zap.Logger
}

// NewRuleService creates the service.
func NewRuleService(rules repository.RuleRepository, logger *zap.Logger) *RuleService {
	return &RuleService{rules: rules, logger: logger}
}

// RuleInput describes a rule create/update payload.
type RuleInput struct {
	Name       string
	Trigger    domain.Trigger
	Conditions domain.Condition
	Actions    []domain.NotificationAction
	IsActive   bool
}

func (s *RuleService) validate(input RuleInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	if !domain.ValidTrigger(input.Trigger) {
		return apperrors.NewValidationError("unknown trigger", map[string]any{"trigger": input.Trigger})
	}
	if len(input.Actions) == 0 {
		return apperrors.NewValidationError("at least one action required", nil)
	}
	for i, action := range input.Actions {
		switch action.Channel {
		case domain.ChannelEmail, domain.ChannelSlack, domain.ChannelTeams, domain.ChannelWebhook, domain.ChannelRealtime:
		default:
			return apperrors.NewValidationError("unknown channel", map[string]any{"index": i, "channel": action.Channel})
		}
		if action.RecipientGroup == "" {
			return apperrors.NewValidationError("recipient_group required", map[string]any{"index": i})
		}
	}
	// reject predicates the matcher could never evaluate
	if _, err := input.Conditions.Evaluate(map[string]any{}); err != nil {
		return apperrors.NewValidationError("invalid conditions", map[string]any{"error": err.Error()})
	}
	return nil
}

// Create stores a new rule.
func (s *RuleService) Create(ctx context.Context, input RuleInput, createdBy string) (*domain.NotificationRule, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	rule := &domain.NotificationRule{
		Name:       input.Name,
		Trigger:    input.Trigger,
		Conditions: input.Conditions,
		Actions:    input.Actions,
		IsActive:   input.IsActive,
		CreatedBy:  &createdBy,
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("notification rule created",
		zap.String("rule_id", rule.ID),
		zap.String("trigger", string(rule.Trigger)))
	return rule, nil
}

// Update replaces an existing rule's definition.
func (s *RuleService) Update(ctx context.Context, id string, input RuleInput) (*domain.NotificationRule, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("rule", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	rule.Name = input.Name
	rule.Trigger = input.Trigger
	rule.Conditions = input.Conditions
	rule.Actions = input.Actions
	rule.IsActive = input.IsActive
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return rule, nil
}

// Delete removes a rule. Already-scheduled actions carry full copies of their
// payload, so deletion never dangles an in-flight dispatch.
func (s *RuleService) Delete(ctx context.Context, id string) error {
	if err := s.rules.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("rule", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	s.logger.Info("notification rule deleted", zap.String("rule_id", id))
	return nil
}

// Get fetches one rule.
func (s *RuleService) Get(ctx context.Context, id string) (*domain.NotificationRule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("rule", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return rule, nil
}

// List pages through rules in creation order.
func (s *RuleService) List(ctx context.Context, limit, offset int) ([]domain.NotificationRule, error) {
	rules, err := s.rules.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rules, nil
}
