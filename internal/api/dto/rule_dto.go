package dto

import (
	"time"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// RuleRequest payload for create and update.
type RuleRequest struct {
	Name       string                      `json:"name"`
	Trigger    domain.Trigger              `json:"trigger"`
	Conditions domain.Condition            `json:"conditions"`
	Actions    []domain.NotificationAction `json:"actions"`
	IsActive   bool                        `json:"is_active"`
}

// RuleResponse represents a stored rule.
type RuleResponse struct {
	ID         string                      `json:"id"`
	Name       string                      `json:"name"`
	Trigger    domain.Trigger              `json:"trigger"`
	Conditions domain.Condition            `json:"conditions"`
	Actions    []domain.NotificationAction `json:"actions"`
	IsActive   bool                        `json:"is_active"`
	CreatedBy  *string                     `json:"created_by"`
	CreatedAt  time.Time                   `json:"created_at"`
	UpdatedAt  time.Time                   `json:"updated_at"`
}

// NewRuleResponse maps a domain rule into its API shape.
func NewRuleResponse(rule domain.NotificationRule) RuleResponse {
	return RuleResponse{
		ID:         rule.ID,
		Name:       rule.Name,
		Trigger:    rule.Trigger,
		Conditions: rule.Conditions,
		Actions:    rule.Actions,
		IsActive:   rule.IsActive,
		CreatedBy:  rule.CreatedBy,
		CreatedAt:  rule.CreatedAt,
		UpdatedAt:  rule.UpdatedAt,
	}
}

// NewRuleResponses maps a slice of rules.
func NewRuleResponses(rules []domain.NotificationRule) []RuleResponse {
	out := make([]RuleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, NewRuleResponse(rule))
	}
	return out
}
