package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notification-engine/internal/api/dto"
	"github.com/spec-kit/notification-engine/internal/auth"
	"github.com/spec-kit/notification-engine/internal/domain"
	"github.com/spec-kit/notification-engine/internal/service"
	apperrors "github.com/spec-kit/notification-engine/pkg/util"
)

// EngineHandler exposes operator controls over the running engine.
type EngineHandler struct {
	engine *service.EngineService
}

// NewEngineHandler constructs handler.
func NewEngineHandler(engineService *service.EngineService) *EngineHandler {
	return &EngineHandler{engine: engineService}
}

// ExecuteRules POST /engine/execute. Runs matching rules synchronously so the
// operator sees the action count.
func (h *EngineHandler) ExecuteRules(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.ExecuteRulesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Context == nil {
		req.Context = map[string]any{}
	}
	count, err := h.engine.ExecuteRulesManually(c.Context(), req.Trigger, req.Context, principal.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ExecuteRulesResponse{ActionsExecuted: count}})
}

// CancelDelayed DELETE /engine/delayed/:handle. Losing the race against the
// timer is a normal outcome, reported as cancelled=false rather than an error.
func (h *EngineHandler) CancelDelayed(c *fiber.Ctx) error {
	cancelled := h.engine.CancelDelayed(c.Params("handle"))
	return c.JSON(fiber.Map{"data": fiber.Map{"cancelled": cancelled}})
}

// Escalate POST /engine/escalate.
func (h *EngineHandler) Escalate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.EscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.TicketID) == "" {
		return apperrors.NewValidationError("ticket_id required", nil)
	}
	escalation, err := h.engine.EscalateManually(c.Context(), req.TicketID, req.Reason, principal.SubjectID)
	if err != nil {
		return err
	}
	items := dto.NewEscalationResponses([]domain.Escalation{*escalation})
	return c.JSON(fiber.Map{"data": items[0]})
}

// Stats GET /engine/stats.
func (h *EngineHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.engine.Stats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}
