package domain

import "time"

// Escalation tracks how far an unresolved ticket has progressed through the
// notification-broadening hierarchy. Level is monotonic while the ticket stays
// open; resolution is terminal.
type Escalation struct {
	ID          string
	TicketID    string
	Level       int
	Reason      string
	Resolved    bool
	LastLevelAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
}

// Context flattens the escalation into event bindings.
func (e Escalation) Context() map[string]any {
	return map[string]any{
		"ticketId": e.TicketID,
		"level":    e.Level,
		"reason":   e.Reason,
	}
}

// AlertSeverity grades dashboard alerts.
type AlertSeverity string

const (
	AlertInfo     AlertSeverity = "info"
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// AlertSource names the subsystem that produced an alert.
type AlertSource string

const (
	AlertSourceSLAViolation    AlertSource = "sla_violation"
	AlertSourceEscalation      AlertSource = "escalation"
	AlertSourceDispatchFailure AlertSource = "dispatch_failure"
	AlertSourceSystem          AlertSource = "system"
)

// Alert is the denormalized, dashboard-facing projection of violations,
// escalations and dispatch failures.
type Alert struct {
	ID         string
	Source     AlertSource
	Severity   AlertSeverity
	Title      string
	Detail     string
	TicketID   *string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}
