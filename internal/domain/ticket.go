package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen        TicketStatus = "OPEN"
	TicketStatusInProgress  TicketStatus = "IN_PROGRESS"
	TicketStatusPendingUser TicketStatus = "PENDING_USER"
	TicketStatusResolved    TicketStatus = "RESOLVED"
	TicketStatusClosed      TicketStatus = "CLOSED"
	TicketStatusCancelled   TicketStatus = "CANCELLED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// IsOpen reports whether the status still counts against SLA timers.
func (s TicketStatus) IsOpen() bool {
	switch s {
	case TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled:
		return false
	}
	return true
}

// TicketSnapshot is a read-only projection of a ticket owned by the external
// ticket store. The engine references tickets by id only and never mutates them.
type TicketSnapshot struct {
	ID               string
	Title            string
	Priority         TicketPriority
	Status           TicketStatus
	ApplicationID    *string
	RequesterID      string
	CreatedAt        time.Time
	LastStatusAt     time.Time
	FirstRespondedAt *time.Time
	ResolvedAt       *time.Time
}

// Context flattens the snapshot into template/condition bindings under the
// "ticket" namespace.
func (t TicketSnapshot) Context() map[string]any {
	ctx := map[string]any{
		"id":       t.ID,
		"title":    t.Title,
		"priority": string(t.Priority),
		"status":   string(t.Status),
	}
	if t.ApplicationID != nil {
		ctx["applicationId"] = *t.ApplicationID
	}
	return ctx
}

// UserContact is a read-only projection of a user owned by the external user
// store, carrying the default channel destinations.
type UserContact struct {
	ID          string
	Name        string
	Email       string
	SlackHandle string
	Group       string
}
