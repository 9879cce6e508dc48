package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notification-engine/internal/api/dto"
	"github.com/spec-kit/notification-engine/internal/service"
	apperrors "github.com/spec-kit/notification-engine/pkg/util"
)

// SettingsHandler manages per-user notification preferences.
type SettingsHandler struct {
	service *service.SettingsService
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: settingsService}
}

// GetSettings GET /users/:id/settings. Returns defaults when no row exists.
func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSettingsResponse(*settings)})
}

// UpsertSettings PUT /users/:id/settings.
func (h *SettingsHandler) UpsertSettings(c *fiber.Ctx) error {
	var req dto.SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	settings, err := h.service.Upsert(c.Context(), req.ToDomain(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSettingsResponse(*settings)})
}
