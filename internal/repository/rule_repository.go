package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// RuleRepository encapsulates notification rule persistence.
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.NotificationRule) error
	Update(ctx context.Context, rule *domain.NotificationRule) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.NotificationRule, error)
	List(ctx context.Context, limit, offset int) ([]domain.NotificationRule, error)
	ListActiveByTrigger(ctx context.Context, trigger domain.Trigger) ([]domain.NotificationRule, error)
	CountActive(ctx context.Context) (int, error)
}

type ruleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository instantiates repository.
func NewRuleRepository(pool *pgxpool.Pool) RuleRepository {
	return &ruleRepository{pool: pool}
}

func (r *ruleRepository) Create(ctx context.Context, rule *domain.NotificationRule) error {
	conditions, actions, err := encodeRule(rule)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO notification_rules (name, trigger, conditions, actions, is_active, created_by)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.Name,
		rule.Trigger,
		conditions,
		actions,
		rule.IsActive,
		rule.CreatedBy,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *ruleRepository) Update(ctx context.Context, rule *domain.NotificationRule) error {
	conditions, actions, err := encodeRule(rule)
	if err != nil {
		return err
	}
	const query = `
        UPDATE notification_rules SET name=$1, trigger=$2, conditions=$3, actions=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		rule.Name,
		rule.Trigger,
		conditions,
		actions,
		rule.IsActive,
		rule.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ruleRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM notification_rules WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ruleRepository) GetByID(ctx context.Context, id string) (*domain.NotificationRule, error) {
	const query = `
        SELECT id, name, trigger, conditions, actions, is_active, created_by, created_at, updated_at
        FROM notification_rules WHERE id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanRule(row)
}

func (r *ruleRepository) List(ctx context.Context, limit, offset int) ([]domain.NotificationRule, error) {
	const query = `
        SELECT id, name, trigger, conditions, actions, is_active, created_by, created_at, updated_at
        FROM notification_rules
        ORDER BY created_at ASC
        LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

// ListActiveByTrigger returns matching rules ordered by creation time so
// evaluation side effects stay reproducible.
func (r *ruleRepository) ListActiveByTrigger(ctx context.Context, trigger domain.Trigger) ([]domain.NotificationRule, error) {
	const query = `
        SELECT id, name, trigger, conditions, actions, is_active, created_by, created_at, updated_at
        FROM notification_rules
        WHERE trigger=$1 AND is_active=TRUE
        ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, trigger)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

func (r *ruleRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notification_rules WHERE is_active=TRUE`).Scan(&count)
	return count, err
}

func encodeRule(rule *domain.NotificationRule) ([]byte, []byte, error) {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return nil, nil, fmt.Errorf("encode conditions: %w", err)
	}
	actions, err := json.Marshal(rule.Actions)
	if err != nil {
		return nil, nil, fmt.Errorf("encode actions: %w", err)
	}
	return conditions, actions, nil
}

func collectRules(rows pgx.Rows) ([]domain.NotificationRule, error) {
	var rules []domain.NotificationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

func scanRule(row pgx.Row) (*domain.NotificationRule, error) {
	var (
		rule       domain.NotificationRule
		conditions []byte
		actions    []byte
	)
	if err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Trigger,
		&conditions,
		&actions,
		&rule.IsActive,
		&rule.CreatedBy,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
		return nil, fmt.Errorf("decode conditions for rule %s: %w", rule.ID, err)
	}
	if err := json.Unmarshal(actions, &rule.Actions); err != nil {
		return nil, fmt.Errorf("decode actions for rule %s: %w", rule.ID, err)
	}
	return &rule, nil
}
