package domain

import "time"

// Trigger is the named category of domain event a rule reacts to.
type Trigger string

const (
	TriggerTicketCreated  Trigger = "ticket_created"
	TriggerResponseAdded  Trigger = "response_added"
	TriggerTicketResolved Trigger = "ticket_resolved"
	TriggerSLAViolation   Trigger = "sla_violation"
	TriggerEscalation     Trigger = "escalation"
	TriggerManual         Trigger = "manual"
)

// KnownTriggers lists every trigger the engine accepts on emit.
var KnownTriggers = []Trigger{
	TriggerTicketCreated,
	TriggerResponseAdded,
	TriggerTicketResolved,
	TriggerSLAViolation,
	TriggerEscalation,
	TriggerManual,
}

// ValidTrigger reports whether t is a known trigger identifier.
func ValidTrigger(t Trigger) bool {
	for _, known := range KnownTriggers {
		if t == known {
			return true
		}
	}
	return false
}

// NotificationChannel identifies a delivery transport.
type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "email"
	ChannelSlack    NotificationChannel = "slack"
	ChannelTeams    NotificationChannel = "teams"
	ChannelWebhook  NotificationChannel = "webhook"
	ChannelRealtime NotificationChannel = "realtime"
)

// NotificationPriority orders dispatches for downstream consumers.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// NotificationAction describes one notification a rule sends. Subject and
// body are templates; rendering happens at dispatch time.
type NotificationAction struct {
	Channel         NotificationChannel  `json:"channel"`
	RecipientGroup  string               `json:"recipient_group"`
	SubjectTemplate string               `json:"subject_template"`
	BodyTemplate    string               `json:"body_template"`
	Priority        NotificationPriority `json:"priority"`
	DelayMinutes    int                  `json:"delay_minutes,omitempty"`
}

// NotificationRule binds a trigger and condition predicate to an ordered
// action list. Rules are mutated only by operators, never by the engine.
type NotificationRule struct {
	ID         string
	Name       string
	Trigger    Trigger
	Conditions Condition
	Actions    []NotificationAction
	IsActive   bool
	CreatedBy  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
