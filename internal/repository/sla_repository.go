package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// SlaConfigRepository resolves SLA thresholds per application and priority.
type SlaConfigRepository interface {
	FindFor(ctx context.Context, applicationID *string, priority domain.TicketPriority) (*domain.SlaConfig, error)
	Upsert(ctx context.Context, cfg *domain.SlaConfig) error
	List(ctx context.Context) ([]domain.SlaConfig, error)
}

type slaConfigRepository struct {
	pool *pgxpool.Pool
}

// NewSlaConfigRepository instantiates repository.
func NewSlaConfigRepository(pool *pgxpool.Pool) SlaConfigRepository {
	return &slaConfigRepository{pool: pool}
}

// FindFor prefers the application-specific row and falls back to the global
// default (NULL application_id). A missing config returns nil, not an error.
func (r *slaConfigRepository) FindFor(ctx context.Context, applicationID *string, priority domain.TicketPriority) (*domain.SlaConfig, error) {
	const query = `
        SELECT id, application_id, priority, response_minutes, resolution_minutes
        FROM sla_configs
        WHERE priority=$1 AND (application_id=$2 OR application_id IS NULL)
        ORDER BY application_id NULLS LAST
        LIMIT 1`
	var cfg domain.SlaConfig
	err := r.pool.QueryRow(ctx, query, priority, applicationID).Scan(
		&cfg.ID,
		&cfg.ApplicationID,
		&cfg.Priority,
		&cfg.ResponseMinutes,
		&cfg.ResolutionMinutes,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *slaConfigRepository) Upsert(ctx context.Context, cfg *domain.SlaConfig) error {
	const query = `
        INSERT INTO sla_configs (application_id, priority, response_minutes, resolution_minutes)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT ((COALESCE(application_id, '')), priority)
        DO UPDATE SET response_minutes=EXCLUDED.response_minutes, resolution_minutes=EXCLUDED.resolution_minutes
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		cfg.ApplicationID,
		cfg.Priority,
		cfg.ResponseMinutes,
		cfg.ResolutionMinutes,
	).Scan(&cfg.ID)
}

func (r *slaConfigRepository) List(ctx context.Context) ([]domain.SlaConfig, error) {
	const query = `
        SELECT id, application_id, priority, response_minutes, resolution_minutes
        FROM sla_configs ORDER BY priority`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []domain.SlaConfig
	for rows.Next() {
		var cfg domain.SlaConfig
		if err := rows.Scan(&cfg.ID, &cfg.ApplicationID, &cfg.Priority, &cfg.ResponseMinutes, &cfg.ResolutionMinutes); err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// ViolationFilter captures dashboard listing parameters for SLA violations.
type ViolationFilter struct {
	TicketID *string
	Type     *domain.ViolationType
	Severity *domain.ViolationSeverity
	OpenOnly bool
	Limit    int
	Offset   int
}

// SlaViolationRepository encapsulates violation persistence.
type SlaViolationRepository interface {
	Create(ctx context.Context, violation *domain.SlaViolation) error
	HasOpen(ctx context.Context, ticketID string, vtype domain.ViolationType) (bool, error)
	Acknowledge(ctx context.Context, id string) error
	ResolveForTicket(ctx context.Context, ticketID string) error
	List(ctx context.Context, filter ViolationFilter) ([]domain.SlaViolation, error)
}

type slaViolationRepository struct {
	pool *pgxpool.Pool
}

// NewSlaViolationRepository instantiates repository.
func NewSlaViolationRepository(pool *pgxpool.Pool) SlaViolationRepository {
	return &slaViolationRepository{pool: pool}
}

func (r *slaViolationRepository) Create(ctx context.Context, violation *domain.SlaViolation) error {
	const query = `
        INSERT INTO sla_violations (ticket_id, violation_type, threshold_minutes, elapsed_minutes, severity)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		violation.TicketID,
		violation.Type,
		violation.ThresholdMinutes,
		violation.ElapsedMinutes,
		violation.Severity,
	).Scan(&violation.ID, &violation.CreatedAt)
}

func (r *slaViolationRepository) HasOpen(ctx context.Context, ticketID string, vtype domain.ViolationType) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM sla_violations
            WHERE ticket_id=$1 AND violation_type=$2 AND acknowledged_at IS NULL AND resolved_at IS NULL
        )`
	var exists bool
	err := r.pool.QueryRow(ctx, query, ticketID, vtype).Scan(&exists)
	return exists, err
}

func (r *slaViolationRepository) Acknowledge(ctx context.Context, id string) error {
	const query = `
        UPDATE sla_violations SET acknowledged_at=NOW()
        WHERE id=$1 AND acknowledged_at IS NULL AND resolved_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ResolveForTicket clears every open violation when the ticket resolves so
// future breaches may raise fresh violations.
func (r *slaViolationRepository) ResolveForTicket(ctx context.Context, ticketID string) error {
	const query = `
        UPDATE sla_violations SET resolved_at=NOW()
        WHERE ticket_id=$1 AND resolved_at IS NULL`
	_, err := r.pool.Exec(ctx, query, ticketID)
	return err
}

func (r *slaViolationRepository) List(ctx context.Context, filter ViolationFilter) ([]domain.SlaViolation, error) {
	query := `
        SELECT id, ticket_id, violation_type, threshold_minutes, elapsed_minutes, severity, acknowledged_at, resolved_at, created_at
        FROM sla_violations WHERE 1=1`
	args := []any{}
	idx := 1

	if filter.TicketID != nil {
		query += ` AND ticket_id=$` + itoa(idx)
		args = append(args, *filter.TicketID)
		idx++
	}
	if filter.Type != nil {
		query += ` AND violation_type=$` + itoa(idx)
		args = append(args, *filter.Type)
		idx++
	}
	if filter.Severity != nil {
		query += ` AND severity=$` + itoa(idx)
		args = append(args, *filter.Severity)
		idx++
	}
	if filter.OpenOnly {
		query += ` AND acknowledged_at IS NULL AND resolved_at IS NULL`
	}

	query += ` ORDER BY created_at DESC LIMIT $` + itoa(idx) + ` OFFSET $` + itoa(idx+1)
	args = append(args, normalizeLimit(filter.Limit), maxInt(filter.Offset, 0))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var violations []domain.SlaViolation
	for rows.Next() {
		var v domain.SlaViolation
		if err := rows.Scan(
			&v.ID,
			&v.TicketID,
			&v.Type,
			&v.ThresholdMinutes,
			&v.ElapsedMinutes,
			&v.Severity,
			&v.AcknowledgedAt,
			&v.ResolvedAt,
			&v.CreatedAt,
		); err != nil {
			return nil, err
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}
