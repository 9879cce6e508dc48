package dto

import "github.com/spec-kit/notification-engine/internal/domain"

// EmitEventRequest is the payload upstream services post to feed the engine.
type EmitEventRequest struct {
	Trigger domain.Trigger `json:"trigger"`
	Context map[string]any `json:"context"`
}

// ExecuteRulesRequest runs matching rules synchronously against an ad-hoc
// context, for operator testing.
type ExecuteRulesRequest struct {
	Trigger domain.Trigger `json:"trigger"`
	Context map[string]any `json:"context"`
}

// ExecuteRulesResponse reports how many actions were produced.
type ExecuteRulesResponse struct {
	ActionsExecuted int `json:"actions_executed"`
}

// EscalateRequest manually raises a ticket's escalation level.
type EscalateRequest struct {
	TicketID string `json:"ticket_id"`
	Reason   string `json:"reason"`
}
