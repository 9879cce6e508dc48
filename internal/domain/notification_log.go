package domain

import "time"

// DispatchStatus tracks a notification log entry. The only legal transition is
// pending -> sent|failed; terminal states are never rewritten.
type DispatchStatus string

const (
	DispatchPending DispatchStatus = "pending"
	DispatchSent    DispatchStatus = "sent"
	DispatchFailed  DispatchStatus = "failed"
)

// NotificationLog records one dispatch attempt. Append-only.
type NotificationLog struct {
	ID          string
	Channel     NotificationChannel
	Recipients  []string
	Subject     string
	Body        string
	Priority    NotificationPriority
	Status      DispatchStatus
	ErrorDetail *string
	TicketID    *string
	RuleID      *string
	CreatedAt   time.Time
	SentAt      *time.Time
}
