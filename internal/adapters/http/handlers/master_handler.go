package handlers

import (
	"errors"

	"clubdesk/internal/core/domain"
	"clubdesk/internal/core/services"
	"clubdesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// MasterHandler handles the configurable type catalogs
type MasterHandler struct {
	masterService *services.MasterService
}

// NewMasterHandler creates a new master data handler
func NewMasterHandler(masterService *services.MasterService) *MasterHandler {
	return &MasterHandler{masterService: masterService}
}

// TypeRequest represents a configurable type create/update body
type TypeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	SortOrder   int    `json:"sort_order"`
	IsActive    *bool  `json:"is_active"`
	// Membership types only
	FeeCents      *int64 `json:"fee_cents"`
	BillingPeriod string `json:"billing_period"`
}

func (r *TypeRequest) toInput() services.TypeInput {
	return services.TypeInput{
		Name:          r.Name,
		Description:   r.Description,
		Color:         r.Color,
		Icon:          r.Icon,
		SortOrder:     r.SortOrder,
		IsActive:      r.IsActive,
		FeeCents:      r.FeeCents,
		BillingPeriod: r.BillingPeriod,
	}
}

// ListMembershipTypes returns the membership type catalog
// @Summary List membership types
// @Tags Master
// @Accept json
// @Produce json
// @Param include_inactive query bool false "Include deactivated types"
// @Success 200 {object} response.Response
// @Router /types/membership [get]
func (h *MasterHandler) ListMembershipTypes(c *fiber.Ctx) error {
	types, err := h.masterService.ListMembershipTypes(c.Context(), c.QueryBool("include_inactive", false))
	if err != nil {
		return response.InternalServerError(c, "Failed to list membership types")
	}
	return response.Success(c, "Membership types retrieved", types)
}

// CreateMembershipType adds a membership type (admin)
// @Summary Create membership type
// @Tags Master
// @Accept json
// @Produce json
// @Param body body TypeRequest true "Type data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/types/membership [post]
func (h *MasterHandler) CreateMembershipType(c *fiber.Ctx) error {
	var req TypeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	t, err := h.masterService.CreateMembershipType(c.Context(), req.toInput())
	if err != nil {
		return h.masterError(c, err)
	}
	return response.Created(c, "Membership type created", t)
}

// UpdateMembershipType updates a membership type (admin)
// @Summary Update membership type
// @Tags Master
// @Accept json
// @Produce json
// @Param id path int true "Type ID"
// @Param body body TypeRequest true "Type data"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/types/membership/{id} [put]
func (h *MasterHandler) UpdateMembershipType(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid type id")
	}

	var req TypeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	t, err := h.masterService.UpdateMembershipType(c.Context(), uint(id), req.toInput())
	if err != nil {
		return h.masterError(c, err)
	}
	return response.Success(c, "Membership type updated", t)
}

// ListEventTypes returns the event type catalog
// @Summary List event types
// @Tags Master
// @Accept json
// @Produce json
// @Param include_inactive query bool false "Include deactivated types"
// @Success 200 {object} response.Response
// @Router /types/events [get]
func (h *MasterHandler) ListEventTypes(c *fiber.Ctx) error {
	types, err := h.masterService.ListEventTypes(c.Context(), c.QueryBool("include_inactive", false))
	if err != nil {
		return response.InternalServerError(c, "Failed to list event types")
	}
	return response.Success(c, "Event types retrieved", types)
}

// CreateEventType adds an event type (admin)
// @Summary Create event type
// @Tags Master
// @Accept json
// @Produce json
// @Param body body TypeRequest true "Type data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /admin/types/events [post]
func (h *MasterHandler) CreateEventType(c *fiber.Ctx) error {
	var req TypeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	t, err := h.masterService.CreateEventType(c.Context(), req.toInput())
	if err != nil {
		return h.masterError(c, err)
	}
	return response.Created(c, "Event type created", t)
}

// UpdateEventType updates an event type (admin)
// @Summary Update event type
// @Tags Master
// @Accept json
// @Produce json
// @Param id path int true "Type ID"
// @Param body body TypeRequest true "Type data"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/types/events/{id} [put]
func (h *MasterHandler) UpdateEventType(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid type id")
	}

	var req TypeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	t, err := h.masterService.UpdateEventType(c.Context(), uint(id), req.toInput())
	if err != nil {
		return h.masterError(c, err)
	}
	return response.Success(c, "Event type updated", t)
}

// ListAnnouncementTypes returns the announcement type catalog
// @Summary List announcement types
// @Tags Master
// @Accept json
// @Produce json
// @Param include_inactive query bool false "Include deactivated types"
// @Success 200 {object} response.Response
// @Router /types/announcements [get]
func (h *MasterHandler) ListAnnouncementTypes(c *fiber.Ctx) error {
	types, err := h.masterService.ListAnnouncementTypes(c.Context(), c.QueryBool("include_inactive", false))
	if err != nil {
		return response.InternalServerError(c, "Failed to list announcement types")
	}
	return response.Success(c, "Announcement types retrieved", types)
}

// CreateAnnouncementType adds an announcement type (admin)
// @Summary Create announcement type
// @Tags Master
// @Accept json
// @Produce json
// @Param body body TypeRequest true "Type data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /admin/types/announcements [post]
func (h *MasterHandler) CreateAnnouncementType(c *fiber.Ctx) error {
	var req TypeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	t, err := h.masterService.CreateAnnouncementType(c.Context(), req.toInput())
	if err != nil {
		return h.masterError(c, err)
	}
	return response.Created(c, "Announcement type created", t)
}

// UpdateAnnouncementType updates an announcement type (admin)
// @Summary Update announcement type
// @Tags Master
// @Accept json
// @Produce json
// @Param id path int true "Type ID"
// @Param body body TypeRequest true "Type data"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/types/announcements/{id} [put]
func (h *MasterHandler) UpdateAnnouncementType(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid type id")
	}

	var req TypeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	t, err := h.masterService.UpdateAnnouncementType(c.Context(), uint(id), req.toInput())
	if err != nil {
		return h.masterError(c, err)
	}
	return response.Success(c, "Announcement type updated", t)
}

func (h *MasterHandler) masterError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, "Type not found")
	case errors.Is(err, domain.ErrConflict):
		return response.Conflict(c, "A type with this name already exists")
	case errors.Is(err, domain.ErrInvalidInput):
		return response.BadRequest(c, "Invalid type data")
	default:
		return response.InternalServerError(c, "Operation failed")
	}
}
