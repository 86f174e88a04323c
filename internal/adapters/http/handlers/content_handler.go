package handlers

import (
	"errors"
	"time"

	"clubdesk/internal/adapters/http/middleware"
	"clubdesk/internal/core/domain"
	"clubdesk/internal/core/services"
	"clubdesk/internal/pkg/pagination"
	"clubdesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ContentHandler handles events and announcements
type ContentHandler struct {
	contentService *services.ContentService
}

// NewContentHandler creates a new content handler
func NewContentHandler(contentService *services.ContentService) *ContentHandler {
	return &ContentHandler{contentService: contentService}
}

// EventRequest represents an event create/update body
type EventRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	EventTypeID uint       `json:"event_type_id"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

func (r *EventRequest) toInput() services.EventInput {
	return services.EventInput{
		Title:       r.Title,
		Description: r.Description,
		EventTypeID: r.EventTypeID,
		Location:    r.Location,
		StartsAt:    r.StartsAt,
		EndsAt:      r.EndsAt,
	}
}

// ListEvents returns events for members
// @Summary List events
// @Description List events, upcoming by default
// @Tags Content
// @Accept json
// @Produce json
// @Param all query bool false "Include past events"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /events [get]
func (h *ContentHandler) ListEvents(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	var from *time.Time
	if !c.QueryBool("all", false) {
		now := time.Now()
		from = &now
	}

	events, total, err := h.contentService.ListEvents(c.Context(), from, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list events")
	}

	return response.Success(c, "Events retrieved", pagination.NewResponse(events, params, total))
}

// GetEvent returns one event
// @Summary Get event
// @Tags Content
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /events/{id} [get]
func (h *ContentHandler) GetEvent(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid event id")
	}

	event, err := h.contentService.GetEvent(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "Event not found")
		}
		return response.InternalServerError(c, "Failed to get event")
	}
	return response.Success(c, "Event retrieved", event)
}

// CreateEvent creates an event (admin)
// @Summary Create event
// @Tags Content
// @Accept json
// @Produce json
// @Param body body EventRequest true "Event data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /admin/events [post]
func (h *ContentHandler) CreateEvent(c *fiber.Ctx) error {
	var req EventRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	event, err := h.contentService.CreateEvent(c.Context(), middleware.CurrentActor(c), req.toInput())
	if err != nil {
		return h.contentError(c, err)
	}
	return response.Created(c, "Event created", event)
}

// UpdateEvent updates an event (admin)
// @Summary Update event
// @Tags Content
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param body body EventRequest true "Event data"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/events/{id} [put]
func (h *ContentHandler) UpdateEvent(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid event id")
	}

	var req EventRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	event, err := h.contentService.UpdateEvent(c.Context(), uint(id), req.toInput())
	if err != nil {
		return h.contentError(c, err)
	}
	return response.Success(c, "Event updated", event)
}

// DeleteEvent removes an event (admin)
// @Summary Delete event
// @Tags Content
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/events/{id} [delete]
func (h *ContentHandler) DeleteEvent(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid event id")
	}

	if err := h.contentService.DeleteEvent(c.Context(), uint(id)); err != nil {
		return h.contentError(c, err)
	}
	return response.Success(c, "Event deleted", nil)
}

// AnnouncementRequest represents an announcement create/update body
type AnnouncementRequest struct {
	Title              string `json:"title"`
	Body               string `json:"body"`
	AnnouncementTypeID uint   `json:"announcement_type_id"`
	Publish            bool   `json:"publish"`
}

func (r *AnnouncementRequest) toInput() services.AnnouncementInput {
	return services.AnnouncementInput{
		Title:              r.Title,
		Body:               r.Body,
		AnnouncementTypeID: r.AnnouncementTypeID,
		Publish:            r.Publish,
	}
}

// ListAnnouncements returns published announcements for members
// @Summary List announcements
// @Tags Content
// @Accept json
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /announcements [get]
func (h *ContentHandler) ListAnnouncements(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	announcements, total, err := h.contentService.ListAnnouncements(c.Context(), true, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list announcements")
	}

	return response.Success(c, "Announcements retrieved", pagination.NewResponse(announcements, params, total))
}

// ListAllAnnouncements returns all announcements including drafts (admin)
// @Summary List all announcements
// @Tags Content
// @Accept json
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /admin/announcements [get]
func (h *ContentHandler) ListAllAnnouncements(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	announcements, total, err := h.contentService.ListAnnouncements(c.Context(), false, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list announcements")
	}

	return response.Success(c, "Announcements retrieved", pagination.NewResponse(announcements, params, total))
}

// CreateAnnouncement creates an announcement (admin)
// @Summary Create announcement
// @Tags Content
// @Accept json
// @Produce json
// @Param body body AnnouncementRequest true "Announcement data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /admin/announcements [post]
func (h *ContentHandler) CreateAnnouncement(c *fiber.Ctx) error {
	var req AnnouncementRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	a, err := h.contentService.CreateAnnouncement(c.Context(), middleware.CurrentActor(c), req.toInput())
	if err != nil {
		return h.contentError(c, err)
	}
	return response.Created(c, "Announcement created", a)
}

// UpdateAnnouncement updates an announcement (admin)
// @Summary Update announcement
// @Tags Content
// @Accept json
// @Produce json
// @Param id path int true "Announcement ID"
// @Param body body AnnouncementRequest true "Announcement data"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/announcements/{id} [put]
func (h *ContentHandler) UpdateAnnouncement(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid announcement id")
	}

	var req AnnouncementRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	a, err := h.contentService.UpdateAnnouncement(c.Context(), uint(id), req.toInput())
	if err != nil {
		return h.contentError(c, err)
	}
	return response.Success(c, "Announcement updated", a)
}

// DeleteAnnouncement removes an announcement (admin)
// @Summary Delete announcement
// @Tags Content
// @Accept json
// @Produce json
// @Param id path int true "Announcement ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/announcements/{id} [delete]
func (h *ContentHandler) DeleteAnnouncement(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid announcement id")
	}

	if err := h.contentService.DeleteAnnouncement(c.Context(), uint(id)); err != nil {
		return h.contentError(c, err)
	}
	return response.Success(c, "Announcement deleted", nil)
}

func (h *ContentHandler) contentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, "Not found")
	case errors.Is(err, domain.ErrInvalidInput):
		return response.BadRequest(c, "Invalid data")
	case errors.Is(err, domain.ErrUnauthenticated):
		return response.Unauthorized(c, "Unauthorized")
	default:
		return response.InternalServerError(c, "Operation failed")
	}
}
