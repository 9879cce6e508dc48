package dto

import (
	"time"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// AlertResponse represents a dashboard alert.
type AlertResponse struct {
	ID         string               `json:"id"`
	Source     domain.AlertSource   `json:"source"`
	Severity   domain.AlertSeverity `json:"severity"`
	Title      string               `json:"title"`
	Detail     string               `json:"detail"`
	TicketID   *string              `json:"ticket_id"`
	CreatedAt  time.Time            `json:"created_at"`
	ResolvedAt *time.Time           `json:"resolved_at"`
}

// NewAlertResponses maps alerts into their API shape.
func NewAlertResponses(alerts []domain.Alert) []AlertResponse {
	out := make([]AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, AlertResponse{
			ID:         a.ID,
			Source:     a.Source,
			Severity:   a.Severity,
			Title:      a.Title,
			Detail:     a.Detail,
			TicketID:   a.TicketID,
			CreatedAt:  a.CreatedAt,
			ResolvedAt: a.ResolvedAt,
		})
	}
	return out
}

// ViolationResponse represents an SLA violation.
type ViolationResponse struct {
	ID               string                   `json:"id"`
	TicketID         string                   `json:"ticket_id"`
	Type             domain.ViolationType     `json:"type"`
	ThresholdMinutes int                      `json:"threshold_minutes"`
	ElapsedMinutes   int                      `json:"elapsed_minutes"`
	Severity         domain.ViolationSeverity `json:"severity"`
	AcknowledgedAt   *time.Time               `json:"acknowledged_at"`
	ResolvedAt       *time.Time               `json:"resolved_at"`
	CreatedAt        time.Time                `json:"created_at"`
}

// NewViolationResponses maps violations into their API shape.
func NewViolationResponses(violations []domain.SlaViolation) []ViolationResponse {
	out := make([]ViolationResponse, 0, len(violations))
	for _, v := range violations {
		out = append(out, ViolationResponse{
			ID:               v.ID,
			TicketID:         v.TicketID,
			Type:             v.Type,
			ThresholdMinutes: v.ThresholdMinutes,
			ElapsedMinutes:   v.ElapsedMinutes,
			Severity:         v.Severity,
			AcknowledgedAt:   v.AcknowledgedAt,
			ResolvedAt:       v.ResolvedAt,
			CreatedAt:        v.CreatedAt,
		})
	}
	return out
}

// EscalationResponse represents escalation state for a ticket.
type EscalationResponse struct {
	ID          string     `json:"id"`
	TicketID    string     `json:"ticket_id"`
	Level       int        `json:"level"`
	Reason      string     `json:"reason"`
	Resolved    bool       `json:"resolved"`
	LastLevelAt time.Time  `json:"last_level_at"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
}

// NewEscalationResponses maps escalations into their API shape.
func NewEscalationResponses(escalations []domain.Escalation) []EscalationResponse {
	out := make([]EscalationResponse, 0, len(escalations))
	for _, e := range escalations {
		out = append(out, EscalationResponse{
			ID:          e.ID,
			TicketID:    e.TicketID,
			Level:       e.Level,
			Reason:      e.Reason,
			Resolved:    e.Resolved,
			LastLevelAt: e.LastLevelAt,
			CreatedAt:   e.CreatedAt,
			ResolvedAt:  e.ResolvedAt,
		})
	}
	return out
}

// LogResponse represents one dispatch attempt.
type LogResponse struct {
	ID          string                      `json:"id"`
	Channel     domain.NotificationChannel  `json:"channel"`
	Recipients  []string                    `json:"recipients"`
	Subject     string                      `json:"subject"`
	Priority    domain.NotificationPriority `json:"priority"`
	Status      domain.DispatchStatus       `json:"status"`
	ErrorDetail *string                     `json:"error_detail"`
	TicketID    *string                     `json:"ticket_id"`
	CreatedAt   time.Time                   `json:"created_at"`
	SentAt      *time.Time                  `json:"sent_at"`
}

// NewLogResponses maps logs into their API shape. Bodies are omitted from
// list views; they can be large and the dashboard never renders them.
func NewLogResponses(logs []domain.NotificationLog) []LogResponse {
	out := make([]LogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, LogResponse{
			ID:          l.ID,
			Channel:     l.Channel,
			Recipients:  l.Recipients,
			Subject:     l.Subject,
			Priority:    l.Priority,
			Status:      l.Status,
			ErrorDetail: l.ErrorDetail,
			TicketID:    l.TicketID,
			CreatedAt:   l.CreatedAt,
			SentAt:      l.SentAt,
		})
	}
	return out
}
