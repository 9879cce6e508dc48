package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// EscalationFilter captures dashboard listing parameters for escalations.
type EscalationFilter struct {
	TicketID   *string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// EscalationRepository encapsulates escalation state persistence.
type EscalationRepository interface {
	Create(ctx context.Context, escalation *domain.Escalation) error
	Update(ctx context.Context, escalation *domain.Escalation) error
	GetActiveByTicket(ctx context.Context, ticketID string) (*domain.Escalation, error)
	ListActive(ctx context.Context) ([]domain.Escalation, error)
	List(ctx context.Context, filter EscalationFilter) ([]domain.Escalation, error)
}

type escalationRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRepository instantiates repository.
func NewEscalationRepository(pool *pgxpool.Pool) EscalationRepository {
	return &escalationRepository{pool: pool}
}

func (r *escalationRepository) Create(ctx context.Context, escalation *domain.Escalation) error {
	const query = `
        INSERT INTO escalations (ticket_id, level, reason, resolved, last_level_at)
        VALUES ($1,$2,$3,FALSE,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		escalation.TicketID,
		escalation.Level,
		escalation.Reason,
		escalation.LastLevelAt,
	).Scan(&escalation.ID, &escalation.CreatedAt, &escalation.UpdatedAt)
}

func (r *escalationRepository) Update(ctx context.Context, escalation *domain.Escalation) error {
	const query = `
        UPDATE escalations SET level=$1, reason=$2, resolved=$3, last_level_at=$4, resolved_at=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		escalation.Level,
		escalation.Reason,
		escalation.Resolved,
		escalation.LastLevelAt,
		escalation.ResolvedAt,
		escalation.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// GetActiveByTicket returns the unresolved escalation for the ticket, or nil.
func (r *escalationRepository) GetActiveByTicket(ctx context.Context, ticketID string) (*domain.Escalation, error) {
	const query = `
        SELECT id, ticket_id, level, reason, resolved, last_level_at, created_at, updated_at, resolved_at
        FROM escalations WHERE ticket_id=$1 AND resolved=FALSE
        ORDER BY created_at DESC LIMIT 1`
	escalation, err := r.scanOne(r.pool.QueryRow(ctx, query, ticketID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return escalation, err
}

func (r *escalationRepository) ListActive(ctx context.Context) ([]domain.Escalation, error) {
	return r.List(ctx, EscalationFilter{ActiveOnly: true, Limit: 200})
}

func (r *escalationRepository) List(ctx context.Context, filter EscalationFilter) ([]domain.Escalation, error) {
	query := `
        SELECT id, ticket_id, level, reason, resolved, last_level_at, created_at, updated_at, resolved_at
        FROM escalations WHERE 1=1`
	args := []any{}
	idx := 1

	if filter.TicketID != nil {
		query += ` AND ticket_id=$` + itoa(idx)
		args = append(args, *filter.TicketID)
		idx++
	}
	if filter.ActiveOnly {
		query += ` AND resolved=FALSE`
	}

	query += ` ORDER BY created_at DESC LIMIT $` + itoa(idx) + ` OFFSET $` + itoa(idx+1)
	args = append(args, normalizeLimit(filter.Limit), maxInt(filter.Offset, 0))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var escalations []domain.Escalation
	for rows.Next() {
		escalation, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		escalations = append(escalations, *escalation)
	}
	return escalations, rows.Err()
}

func (r *escalationRepository) scanOne(row pgx.Row) (*domain.Escalation, error) {
	var escalation domain.Escalation
	if err := row.Scan(
		&escalation.ID,
		&escalation.TicketID,
		&escalation.Level,
		&escalation.Reason,
		&escalation.Resolved,
		&escalation.LastLevelAt,
		&escalation.CreatedAt,
		&escalation.UpdatedAt,
		&escalation.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &escalation, nil
}
