package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// RuleSource supplies active rules for a trigger. Rules are read-only during
// evaluation; operators mutate them out of band.
type RuleSource interface {
	ListActiveByTrigger(ctx context.Context, trigger domain.Trigger) ([]domain.NotificationRule, error)
}

// ResolvedAction is a matched rule's action copied out of the rule, so later
// rule deletion cannot dangle a reference from scheduled work.
type ResolvedAction struct {
	RuleID   string
	RuleName string
	Action   domain.NotificationAction
}

// Matcher selects active rules whose conditions match an event context.
type Matcher struct {
	rules  RuleSource
	logger *zap.Logger
}

// NewMatcher constructs a matcher.
func NewMatcher(rules RuleSource, logger *zap.Logger) *Matcher {
	return &Matcher{rules: rules, logger: logger}
}

// Evaluate returns the resolved actions of every matching rule, in rule
// creation order. A malformed condition fails that rule only; evaluation of
// the remaining rules continues.
func (m *Matcher) Evaluate(ctx context.Context, trigger domain.Trigger, evctx map[string]any) ([]ResolvedAction, error) {
	rules, err := m.rules.ListActiveByTrigger(ctx, trigger)
	if err != nil {
		return nil, err
	}

	var resolved []ResolvedAction
	for _, rule := range rules {
		matched, err := rule.Conditions.Evaluate(evctx)
		if err != nil {
			m.logger.Warn("rule evaluation error",
				zap.String("rule_id", rule.ID),
				zap.String("rule_name", rule.Name),
				zap.Error(err))
			continue
		}
		if !matched {
			continue
		}
		for _, action := range rule.Actions {
			resolved = append(resolved, ResolvedAction{
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Action:   action,
			})
		}
	}
	return resolved, nil
}
