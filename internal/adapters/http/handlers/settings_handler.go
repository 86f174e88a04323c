package handlers

import (
	"errors"

	"clubdesk/internal/adapters/http/middleware"
	"clubdesk/internal/core/domain"
	"clubdesk/internal/core/services"
	"clubdesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// SettingsHandler handles runtime policy settings (admin)
type SettingsHandler struct {
	settingsService *services.SettingsService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// List returns all settings
// @Summary List settings
// @Description List all runtime settings, sensitive values masked
// @Tags Settings
// @Accept json
// @Produce json
// @Param category query string false "Filter by category"
// @Success 200 {object} response.Response
// @Router /admin/settings [get]
func (h *SettingsHandler) List(c *fiber.Ctx) error {
	if category := c.Query("category"); category != "" {
		settings, err := h.settingsService.GetByCategory(c.Context(), category)
		if err != nil {
			return response.InternalServerError(c, "Failed to list settings")
		}
		return response.Success(c, "Settings retrieved", settings)
	}

	settings, err := h.settingsService.List(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list settings")
	}
	return response.Success(c, "Settings retrieved", settings)
}

// Policies returns the effective payment and membership policies
// @Summary Effective policies
// @Description Current payment and membership policies derived from settings, with defaults where unset
// @Tags Settings
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Router /policies [get]
func (h *SettingsHandler) Policies(c *fiber.Ctx) error {
	return response.Success(c, "Policies retrieved", fiber.Map{
		"payment":    h.settingsService.GetPaymentPolicy(c.Context()),
		"membership": h.settingsService.GetMembershipPolicy(c.Context()),
	})
}

// UpdateSettingRequest represents a setting update body
type UpdateSettingRequest struct {
	Value string `json:"value"`
}

// Update changes a setting's value
// @Summary Update setting
// @Description Update a known setting; value is validated against its type
// @Tags Settings
// @Accept json
// @Produce json
// @Param key path string true "Setting key"
// @Param body body UpdateSettingRequest true "New value"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/settings/{key} [put]
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return response.BadRequest(c, "Setting key is required")
	}

	var req UpdateSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	setting, err := h.settingsService.Update(c.Context(), middleware.CurrentActor(c), key, req.Value)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return response.NotFound(c, "Unknown setting")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Value does not match the setting type")
		default:
			return response.InternalServerError(c, "Failed to update setting")
		}
	}

	return response.Success(c, "Setting updated", setting)
}
