package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// TicketDirectory is the read-only view over the external ticket store. The
// engine references tickets by id and never writes through this interface.
type TicketDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.TicketSnapshot, error)
	ListOpen(ctx context.Context) ([]domain.TicketSnapshot, error)
}

type ticketDirectory struct {
	pool *pgxpool.Pool
}

// NewTicketDirectory instantiates the read-only lookup.
func NewTicketDirectory(pool *pgxpool.Pool) TicketDirectory {
	return &ticketDirectory{pool: pool}
}

const ticketColumns = `
        id, title, priority, status, application_id, requester_user_id,
        created_at, last_status_at, first_responded_at, resolved_at`

func (r *ticketDirectory) GetByID(ctx context.Context, id string) (*domain.TicketSnapshot, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketDirectory) ListOpen(ctx context.Context) ([]domain.TicketSnapshot, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE status NOT IN ('RESOLVED','CLOSED','CANCELLED')
        ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []domain.TicketSnapshot
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.TicketSnapshot, error) {
	var ticket domain.TicketSnapshot
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Priority,
		&ticket.Status,
		&ticket.ApplicationID,
		&ticket.RequesterID,
		&ticket.CreatedAt,
		&ticket.LastStatusAt,
		&ticket.FirstRespondedAt,
		&ticket.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UserDirectory is the read-only view over the external user store, used to
// resolve recipient groups into contacts.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.UserContact, error)
	ListByGroup(ctx context.Context, group string) ([]domain.UserContact, error)
}

type userDirectory struct {
	pool *pgxpool.Pool
}

// NewUserDirectory instantiates the read-only lookup.
func NewUserDirectory(pool *pgxpool.Pool) UserDirectory {
	return &userDirectory{pool: pool}
}

func (r *userDirectory) GetByID(ctx context.Context, id string) (*domain.UserContact, error) {
	const query = `
        SELECT id, name, email, slack_handle, user_group
        FROM users WHERE id=$1`
	var contact domain.UserContact
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&contact.ID,
		&contact.Name,
		&contact.Email,
		&contact.SlackHandle,
		&contact.Group,
	); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *userDirectory) ListByGroup(ctx context.Context, group string) ([]domain.UserContact, error) {
	const query = `
        SELECT id, name, email, slack_handle, user_group
        FROM users WHERE user_group=$1
        ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, group)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []domain.UserContact
	for rows.Next() {
		var contact domain.UserContact
		if err := rows.Scan(&contact.ID, &contact.Name, &contact.Email, &contact.SlackHandle, &contact.Group); err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}
