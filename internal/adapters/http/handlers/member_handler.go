package handlers

import (
	"errors"
	"time"

	"clubdesk/internal/adapters/http/middleware"
	"clubdesk/internal/adapters/persistence/models"
	"clubdesk/internal/core/domain"
	"clubdesk/internal/core/services"
	"clubdesk/internal/pkg/pagination"
	"clubdesk/internal/pkg/password"
	"clubdesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// MemberHandler handles member profile and admin member management
type MemberHandler struct {
	memberService     *services.MemberService
	membershipService *services.MembershipService
	sweeper           *services.SweeperService
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(memberService *services.MemberService, membershipService *services.MembershipService, sweeper *services.SweeperService) *MemberHandler {
	return &MemberHandler{
		memberService:     memberService,
		membershipService: membershipService,
		sweeper:           sweeper,
	}
}

// UpdateProfileRequest represents the self-service profile update body
type UpdateProfileRequest struct {
	FullName *string `json:"full_name"`
}

// UpdateProfile updates the authenticated member's own profile
// @Summary Update own profile
// @Description Update the authenticated member's profile fields
// @Tags Members
// @Accept json
// @Produce json
// @Param body body UpdateProfileRequest true "Profile data"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /members/me [put]
func (h *MemberHandler) UpdateProfile(c *fiber.Ctx) error {
	member := middleware.CurrentMember(c)
	if member == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	updated, err := h.memberService.Update(c.Context(), middleware.CurrentActor(c), member.ID, services.UpdateInput{
		FullName: req.FullName,
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to update profile")
	}

	return response.Success(c, "Profile updated", fiber.Map{
		"member": updated.ToResponse(time.Now()),
	})
}

// List returns a paginated member list (admin)
// @Summary List members
// @Description List all members with pagination
// @Tags Members
// @Accept json
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/members [get]
func (h *MemberHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	members, total, err := h.memberService.List(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list members")
	}

	now := time.Now()
	items := make([]*models.MemberResponse, 0, len(members))
	for _, m := range members {
		items = append(items, m.ToResponse(now))
	}

	return response.Success(c, "Members retrieved", pagination.NewResponse(items, params, total))
}

// Get returns one member (admin)
// @Summary Get member
// @Description Get a member by id
// @Tags Members
// @Accept json
// @Produce json
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/members/{id} [get]
func (h *MemberHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid member id")
	}

	member, err := h.memberService.GetByID(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return response.NotFound(c, "Member not found")
		}
		return response.InternalServerError(c, "Failed to get member")
	}

	return response.Success(c, "Member retrieved", fiber.Map{
		"member": member.ToResponse(time.Now()),
	})
}

// CreateMemberRequest represents the admin member-creation body
type CreateMemberRequest struct {
	Email              string `json:"email"`
	Username           string `json:"username"`
	FullName           string `json:"full_name"`
	Password           string `json:"password"`
	Role               string `json:"role"`
	MembershipTypeSlug string `json:"membership_type"`
	Notes              string `json:"notes"`
}

// Create registers a member on an admin's behalf
// @Summary Create member
// @Description Create a member record directly
// @Tags Members
// @Accept json
// @Produce json
// @Param body body CreateMemberRequest true "Member data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/members [post]
func (h *MemberHandler) Create(c *fiber.Ctx) error {
	var req CreateMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	member, err := h.memberService.Create(c.Context(), middleware.CurrentActor(c), services.CreateInput{
		Email:              req.Email,
		Username:           req.Username,
		FullName:           req.FullName,
		Password:           req.Password,
		Role:               req.Role,
		MembershipTypeSlug: req.MembershipTypeSlug,
		Notes:              req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMemberExists):
			return response.Conflict(c, "Email or username already registered")
		case errors.Is(err, password.ErrPasswordTooShort):
			return response.BadRequest(c, "Password must be at least 8 characters")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Invalid member data")
		default:
			return response.InternalServerError(c, "Failed to create member")
		}
	}

	return response.Created(c, "Member created", fiber.Map{
		"member": member.ToResponse(time.Now()),
	})
}

// UpdateMemberRequest represents the admin member update body
type UpdateMemberRequest struct {
	FullName           *string `json:"full_name"`
	MembershipTypeSlug *string `json:"membership_type"`
	Notes              *string `json:"notes"`
	Role               *string `json:"role"`
}

// Update changes a member's profile fields (admin)
// @Summary Update member
// @Description Update a member's profile fields
// @Tags Members
// @Accept json
// @Produce json
// @Param id path int true "Member ID"
// @Param body body UpdateMemberRequest true "Member data"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/members/{id} [put]
func (h *MemberHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid member id")
	}

	var req UpdateMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	member, err := h.memberService.Update(c.Context(), middleware.CurrentActor(c), uint(id), services.UpdateInput{
		FullName:           req.FullName,
		MembershipTypeSlug: req.MembershipTypeSlug,
		Notes:              req.Notes,
		Role:               req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMemberNotFound):
			return response.NotFound(c, "Member not found")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Invalid member data")
		default:
			return response.InternalServerError(c, "Failed to update member")
		}
	}

	return response.Success(c, "Member updated", fiber.Map{
		"member": member.ToResponse(time.Now()),
	})
}

// ApproveRequest carries the membership type for an approval
type ApproveRequest struct {
	MembershipTypeID uint `json:"membership_type_id"`
}

// Approve activates a pending member
// @Summary Approve member
// @Description Approve a pending application and activate the member
// @Tags Members
// @Accept json
// @Produce json
// @Param id path int true "Member ID"
// @Param body body ApproveRequest true "Approval data"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /admin/members/{id}/approve [post]
func (h *MemberHandler) Approve(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid member id")
	}

	var req ApproveRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.MembershipTypeID == 0 {
		return response.BadRequest(c, "Membership type is required")
	}

	member, err := h.membershipService.Approve(c.Context(), middleware.CurrentActor(c), uint(id), req.MembershipTypeID)
	if err != nil {
		return h.transitionError(c, err)
	}

	return response.Success(c, "Member approved", fiber.Map{
		"member": member.ToResponse(time.Now()),
	})
}

// Reject declines a pending member
// @Summary Reject member
// @Description Reject a pending application
// @Tags Members
// @Accept json
// @Produce json
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /admin/members/{id}/reject [post]
func (h *MemberHandler) Reject(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid member id")
	}

	member, err := h.membershipService.Reject(c.Context(), middleware.CurrentActor(c), uint(id))
	if err != nil {
		return h.transitionError(c, err)
	}

	return response.Success(c, "Member rejected", fiber.Map{
		"member": member.ToResponse(time.Now()),
	})
}

// Suspend suspends a member
// @Summary Suspend member
// @Description Suspend an active or expired member
// @Tags Members
// @Accept json
// @Produce json
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /admin/members/{id}/suspend [post]
func (h *MemberHandler) Suspend(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid member id")
	}

	member, err := h.membershipService.Suspend(c.Context(), middleware.CurrentActor(c), uint(id))
	if err != nil {
		return h.transitionError(c, err)
	}

	return response.Success(c, "Member suspended", fiber.Map{
		"member": member.ToResponse(time.Now()),
	})
}

// Reinstate lifts a suspension
// @Summary Reinstate member
// @Description Lift a suspension; resulting status follows the dues position
// @Tags Members
// @Accept json
// @Produce json
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /admin/members/{id}/reinstate [post]
func (h *MemberHandler) Reinstate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid member id")
	}

	member, err := h.membershipService.Reinstate(c.Context(), middleware.CurrentActor(c), uint(id))
	if err != nil {
		return h.transitionError(c, err)
	}

	return response.Success(c, "Member reinstated", fiber.Map{
		"member": member.ToResponse(time.Now()),
	})
}

// SetHonorary grants honorary standing
// @Summary Grant honorary standing
// @Description Set a member to honorary status, exempt from dues
// @Tags Members
// @Accept json
// @Produce json
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /admin/members/{id}/honorary [post]
func (h *MemberHandler) SetHonorary(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid member id")
	}

	member, err := h.membershipService.SetHonorary(c.Context(), middleware.CurrentActor(c), uint(id))
	if err != nil {
		return h.transitionError(c, err)
	}

	return response.Success(c, "Member set honorary", fiber.Map{
		"member": member.ToResponse(time.Now()),
	})
}

// BypassRequest toggles the dues bypass flag
type BypassRequest struct {
	Bypass bool `json:"bypass"`
}

// SetBypass toggles a member's dues bypass
// @Summary Set dues bypass
// @Description Toggle the per-member dues bypass flag
// @Tags Members
// @Accept json
// @Produce json
// @Param id path int true "Member ID"
// @Param body body BypassRequest true "Bypass flag"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/members/{id}/bypass [post]
func (h *MemberHandler) SetBypass(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid member id")
	}

	var req BypassRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	member, err := h.membershipService.SetBypass(c.Context(), middleware.CurrentActor(c), uint(id), req.Bypass)
	if err != nil {
		return h.transitionError(c, err)
	}

	return response.Success(c, "Bypass updated", fiber.Map{
		"member": member.ToResponse(time.Now()),
	})
}

// History returns the member's audit trail
// @Summary Member history
// @Description List the audit records for a member, newest first
// @Tags Members
// @Accept json
// @Produce json
// @Param id path int true "Member ID"
// @Param limit query int false "Max records"
// @Success 200 {object} response.Response
// @Router /admin/members/{id}/history [get]
func (h *MemberHandler) History(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid member id")
	}

	records, err := h.memberService.History(c.Context(), uint(id), c.QueryInt("limit", 50))
	if err != nil {
		return response.InternalServerError(c, "Failed to load history")
	}

	return response.Success(c, "History retrieved", fiber.Map{
		"history": records,
	})
}

// RunDuesSweep triggers the dues reconciliation sweep immediately
// @Summary Run dues sweep
// @Description Persist lapsed expirations and grace-period suspensions without waiting for the nightly run
// @Tags Members
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Router /admin/sweeps/dues [post]
func (h *MemberHandler) RunDuesSweep(c *fiber.Ctx) error {
	expired, suspended, err := h.sweeper.RunDuesSweepNow(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Sweep failed")
	}

	return response.Success(c, "Sweep completed", fiber.Map{
		"expired":   expired,
		"suspended": suspended,
	})
}

func (h *MemberHandler) transitionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrMemberNotFound), errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, "Member not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		return response.UnprocessableEntity(c, "Transition not allowed from current status")
	case errors.Is(err, domain.ErrInvalidInput):
		return response.BadRequest(c, "Invalid request data")
	default:
		return response.InternalServerError(c, "Operation failed")
	}
}
