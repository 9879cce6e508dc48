package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notification-engine/internal/api/dto"
	"github.com/spec-kit/notification-engine/internal/auth"
	"github.com/spec-kit/notification-engine/internal/service"
	apperrors "github.com/spec-kit/notification-engine/pkg/util"
)

// RulesHandler manages operator CRUD over notification rules.
type RulesHandler struct {
	service *service.RuleService
}

// NewRulesHandler constructs handler.
func NewRulesHandler(ruleService *service.RuleService) *RulesHandler {
	return &RulesHandler{service: ruleService}
}

// CreateRule POST /rules.
func (h *RulesHandler) CreateRule(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.service.Create(c.Context(), ruleInput(req), principal.SubjectID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewRuleResponse(*rule)})
}

// UpdateRule PUT /rules/:id.
func (h *RulesHandler) UpdateRule(c *fiber.Ctx) error {
	var req dto.RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.service.Update(c.Context(), c.Params("id"), ruleInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRuleResponse(*rule)})
}

// DeleteRule DELETE /rules/:id.
func (h *RulesHandler) DeleteRule(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetRule GET /rules/:id.
func (h *RulesHandler) GetRule(c *fiber.Ctx) error {
	rule, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRuleResponse(*rule)})
}

// ListRules GET /rules.
func (h *RulesHandler) ListRules(c *fiber.Ctx) error {
	limit, offset := parsePagination(c)
	rules, err := h.service.List(c.Context(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRuleResponses(rules)})
}

func ruleInput(req dto.RuleRequest) service.RuleInput {
	return service.RuleInput{
		Name:       req.Name,
		Trigger:    req.Trigger,
		Conditions: req.Conditions,
		Actions:    req.Actions,
		IsActive:   req.IsActive,
	}
}
