package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notification-engine/internal/api/dto"
	"github.com/spec-kit/notification-engine/internal/domain"
	"github.com/spec-kit/notification-engine/internal/repository"
	"github.com/spec-kit/notification-engine/internal/service"
)

// DashboardHandler serves the alert dashboard read endpoints.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: dashboardService}
}

// ListAlerts GET /dashboard/alerts.
func (h *DashboardHandler) ListAlerts(c *fiber.Ctx) error {
	limit, offset := parsePagination(c)
	filter := repository.AlertFilter{
		UnresolvedOnly: c.QueryBool("unresolved"),
		Limit:          limit,
		Offset:         offset,
	}
	if raw := c.Query("source"); raw != "" {
		source := domain.AlertSource(raw)
		filter.Source = &source
	}
	if raw := c.Query("severity"); raw != "" {
		severity := domain.AlertSeverity(raw)
		filter.Severity = &severity
	}
	alerts, err := h.service.ListAlerts(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAlertResponses(alerts)})
}

// ListViolations GET /dashboard/violations.
func (h *DashboardHandler) ListViolations(c *fiber.Ctx) error {
	limit, offset := parsePagination(c)
	filter := repository.ViolationFilter{
		OpenOnly: c.QueryBool("open"),
		Limit:    limit,
		Offset:   offset,
	}
	if raw := c.Query("ticket_id"); raw != "" {
		filter.TicketID = &raw
	}
	if raw := c.Query("type"); raw != "" {
		vtype := domain.ViolationType(raw)
		filter.Type = &vtype
	}
	if raw := c.Query("severity"); raw != "" {
		severity := domain.ViolationSeverity(raw)
		filter.Severity = &severity
	}
	violations, err := h.service.ListViolations(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewViolationResponses(violations)})
}

// AcknowledgeViolation POST /dashboard/violations/:id/acknowledge.
func (h *DashboardHandler) AcknowledgeViolation(c *fiber.Ctx) error {
	if err := h.service.AcknowledgeViolation(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"acknowledged": true}})
}

// ListEscalations GET /dashboard/escalations.
func (h *DashboardHandler) ListEscalations(c *fiber.Ctx) error {
	limit, offset := parsePagination(c)
	filter := repository.EscalationFilter{
		ActiveOnly: c.QueryBool("active"),
		Limit:      limit,
		Offset:     offset,
	}
	if raw := c.Query("ticket_id"); raw != "" {
		filter.TicketID = &raw
	}
	escalations, err := h.service.ListEscalations(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEscalationResponses(escalations)})
}

// ListLogs GET /dashboard/logs.
func (h *DashboardHandler) ListLogs(c *fiber.Ctx) error {
	limit, offset := parsePagination(c)
	filter := repository.LogFilter{Limit: limit, Offset: offset}
	if raw := c.Query("channel"); raw != "" {
		ch := domain.NotificationChannel(raw)
		filter.Channel = &ch
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.DispatchStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("ticket_id"); raw != "" {
		filter.TicketID = &raw
	}
	logs, err := h.service.ListLogs(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLogResponses(logs)})
}
