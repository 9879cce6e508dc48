package domain

import "time"

// ViolationType distinguishes which SLA timer was breached.
type ViolationType string

const (
	ViolationResponseTime   ViolationType = "response_time"
	ViolationResolutionTime ViolationType = "resolution_time"
)

// ViolationSeverity grades how far past the threshold a ticket is.
type ViolationSeverity string

const (
	SeverityWarning  ViolationSeverity = "warning"
	SeverityCritical ViolationSeverity = "critical"
)

// SlaConfig holds response/resolution thresholds per application and priority
// tier. A nil ApplicationID row is the global default.
type SlaConfig struct {
	ID                string
	ApplicationID     *string
	Priority          TicketPriority
	ResponseMinutes   int
	ResolutionMinutes int
}

// SlaViolation is created once per (ticket, type) crossing. It stays open
// until the ticket resolves or an operator acknowledges it; a new violation of
// the same type may only be raised after the prior one is cleared.
type SlaViolation struct {
	ID               string
	TicketID         string
	Type             ViolationType
	ThresholdMinutes int
	ElapsedMinutes   int
	Severity         ViolationSeverity
	AcknowledgedAt   *time.Time
	ResolvedAt       *time.Time
	CreatedAt        time.Time
}

// Open reports whether the violation still occupies its active window.
func (v SlaViolation) Open() bool {
	return v.AcknowledgedAt == nil && v.ResolvedAt == nil
}

// Context flattens the violation into event bindings.
func (v SlaViolation) Context() map[string]any {
	return map[string]any{
		"violationType": string(v.Type),
		"severity":      string(v.Severity),
		"threshold":     v.ThresholdMinutes,
		"elapsed":       v.ElapsedMinutes,
	}
}
