package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// LogFilter captures dashboard listing parameters for notification logs.
type LogFilter struct {
	Channel  *domain.NotificationChannel
	Status   *domain.DispatchStatus
	TicketID *string
	Limit    int
	Offset   int
}

// NotificationLogRepository encapsulates dispatch log persistence. Entries are
// append-only; only pending rows transition, to sent or failed.
type NotificationLogRepository interface {
	Create(ctx context.Context, log *domain.NotificationLog) error
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, detail string) error
	List(ctx context.Context, filter LogFilter) ([]domain.NotificationLog, error)
}

type notificationLogRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationLogRepository instantiates repository.
func NewNotificationLogRepository(pool *pgxpool.Pool) NotificationLogRepository {
	return &notificationLogRepository{pool: pool}
}

func (r *notificationLogRepository) Create(ctx context.Context, log *domain.NotificationLog) error {
	const query = `
        INSERT INTO notification_logs (channel, recipients, subject, body, priority, status, ticket_id, rule_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		log.Channel,
		log.Recipients,
		log.Subject,
		log.Body,
		log.Priority,
		domain.DispatchPending,
		log.TicketID,
		log.RuleID,
	).Scan(&log.ID, &log.CreatedAt)
}

func (r *notificationLogRepository) MarkSent(ctx context.Context, id string) error {
	const query = `
        UPDATE notification_logs SET status=$1, sent_at=NOW()
        WHERE id=$2 AND status=$3`
	cmd, err := r.pool.Exec(ctx, query, domain.DispatchSent, id, domain.DispatchPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationLogRepository) MarkFailed(ctx context.Context, id string, detail string) error {
	const query = `
        UPDATE notification_logs SET status=$1, error_detail=$2
        WHERE id=$3 AND status=$4`
	cmd, err := r.pool.Exec(ctx, query, domain.DispatchFailed, detail, id, domain.DispatchPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationLogRepository) List(ctx context.Context, filter LogFilter) ([]domain.NotificationLog, error) {
	query := `
        SELECT id, channel, recipients, subject, body, priority, status, error_detail, ticket_id, rule_id, created_at, sent_at
        FROM notification_logs WHERE 1=1`
	args := []any{}
	idx := 1

	if filter.Channel != nil {
		query += ` AND channel=$` + itoa(idx)
		args = append(args, *filter.Channel)
		idx++
	}
	if filter.Status != nil {
		query += ` AND status=$` + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.TicketID != nil {
		query += ` AND ticket_id=$` + itoa(idx)
		args = append(args, *filter.TicketID)
		idx++
	}

	query += ` ORDER BY created_at DESC LIMIT $` + itoa(idx) + ` OFFSET $` + itoa(idx+1)
	args = append(args, normalizeLimit(filter.Limit), maxInt(filter.Offset, 0))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.NotificationLog
	for rows.Next() {
		var entry domain.NotificationLog
		var sentAt *time.Time
		if err := rows.Scan(
			&entry.ID,
			&entry.Channel,
			&entry.Recipients,
			&entry.Subject,
			&entry.Body,
			&entry.Priority,
			&entry.Status,
			&entry.ErrorDetail,
			&entry.TicketID,
			&entry.RuleID,
			&entry.CreatedAt,
			&sentAt,
		); err != nil {
			return nil, err
		}
		entry.SentAt = sentAt
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
