package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notification-engine/internal/api/dto"
	"github.com/spec-kit/notification-engine/internal/auth"
	"github.com/spec-kit/notification-engine/internal/service"
	apperrors "github.com/spec-kit/notification-engine/pkg/util"
)

// EventsHandler accepts domain events from upstream ticketing services.
type EventsHandler struct {
	engine *service.EngineService
}

// NewEventsHandler constructs handler.
func NewEventsHandler(engineService *service.EngineService) *EventsHandler {
	return &EventsHandler{engine: engineService}
}

// EmitEvent POST /events. The event is enqueued and processed asynchronously;
// 202 only acknowledges receipt.
func (h *EventsHandler) EmitEvent(c *fiber.Ctx) error {
	var req dto.EmitEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Context == nil {
		req.Context = map[string]any{}
	}

	var actorID *string
	if principal, ok := auth.PrincipalFromContext(c); ok {
		actorID = &principal.SubjectID
	}
	if err := h.engine.Emit(req.Trigger, req.Context, actorID); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"accepted": true}})
}
