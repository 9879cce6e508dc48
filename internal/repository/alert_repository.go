package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// AlertFilter captures dashboard listing parameters for alerts.
type AlertFilter struct {
	Source         *domain.AlertSource
	Severity       *domain.AlertSeverity
	UnresolvedOnly bool
	Limit          int
	Offset         int
}

// AlertRepository encapsulates dashboard alert persistence.
type AlertRepository interface {
	Create(ctx context.Context, alert *domain.Alert) error
	ResolveForTicket(ctx context.Context, ticketID string) error
	List(ctx context.Context, filter AlertFilter) ([]domain.Alert, error)
}

type alertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository instantiates repository.
func NewAlertRepository(pool *pgxpool.Pool) AlertRepository {
	return &alertRepository{pool: pool}
}

func (r *alertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	const query = `
        INSERT INTO alerts (source, severity, title, detail, ticket_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		alert.Source,
		alert.Severity,
		alert.Title,
		alert.Detail,
		alert.TicketID,
	).Scan(&alert.ID, &alert.CreatedAt)
}

// ResolveForTicket stamps resolution on every open alert for the ticket.
func (r *alertRepository) ResolveForTicket(ctx context.Context, ticketID string) error {
	const query = `
        UPDATE alerts SET resolved_at=NOW()
        WHERE ticket_id=$1 AND resolved_at IS NULL`
	_, err := r.pool.Exec(ctx, query, ticketID)
	return err
}

func (r *alertRepository) List(ctx context.Context, filter AlertFilter) ([]domain.Alert, error) {
	query := `
        SELECT id, source, severity, title, detail, ticket_id, created_at, resolved_at
        FROM alerts WHERE 1=1`
	args := []any{}
	idx := 1

	if filter.Source != nil {
		query += ` AND source=$` + itoa(idx)
		args = append(args, *filter.Source)
		idx++
	}
	if filter.Severity != nil {
		query += ` AND severity=$` + itoa(idx)
		args = append(args, *filter.Severity)
		idx++
	}
	if filter.UnresolvedOnly {
		query += ` AND resolved_at IS NULL`
	}

	query += ` ORDER BY created_at DESC LIMIT $` + itoa(idx) + ` OFFSET $` + itoa(idx+1)
	args = append(args, normalizeLimit(filter.Limit), maxInt(filter.Offset, 0))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var alert domain.Alert
		if err := rows.Scan(
			&alert.ID,
			&alert.Source,
			&alert.Severity,
			&alert.Title,
			&alert.Detail,
			&alert.TicketID,
			&alert.CreatedAt,
			&alert.ResolvedAt,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}
