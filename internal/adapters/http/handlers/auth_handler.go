package handlers

import (
	"errors"
	"strings"
	"time"

	"clubdesk/internal/adapters/http/middleware"
	"clubdesk/internal/config"
	"clubdesk/internal/core/domain"
	"clubdesk/internal/core/services"
	"clubdesk/internal/pkg/password"
	"clubdesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CsrfCookie mirrors the CSRF token for SPA clients. Not HttpOnly;
// the client reads it and echoes it back in the header.
const CsrfCookie = "csrf_token"

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
	}
}

// SignupRequest represents signup request body
type SignupRequest struct {
	Email              string `json:"email"`
	Username           string `json:"username"`
	FullName           string `json:"full_name"`
	Password           string `json:"password"`
	MembershipTypeSlug string `json:"membership_type"`
}

// LoginRequest represents login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest represents password change request body
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Signup handles member self-registration
// @Summary Register new member
// @Description Register a new member application in pending status
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body SignupRequest true "Signup data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" {
		return response.BadRequest(c, "Email is required")
	}
	if req.Username == "" {
		return response.BadRequest(c, "Username is required")
	}
	if req.Password == "" {
		return response.BadRequest(c, "Password is required")
	}

	member, err := h.authService.Signup(c.Context(), services.SignupInput{
		Email:              req.Email,
		Username:           req.Username,
		FullName:           req.FullName,
		Password:           req.Password,
		MembershipTypeSlug: strings.TrimSpace(req.MembershipTypeSlug),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMemberExists):
			return response.Conflict(c, "Email or username already registered")
		case errors.Is(err, password.ErrPasswordTooShort):
			return response.BadRequest(c, "Password must be at least 8 characters")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Invalid signup data")
		default:
			return response.InternalServerError(c, "Failed to register member")
		}
	}

	return response.Created(c, "Application received", fiber.Map{
		"member": member.ToResponse(time.Now()),
	})
}

// Login handles member login
// @Summary Login member
// @Description Authenticate a member and start a session
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" {
		return response.BadRequest(c, "Email is required")
	}
	if req.Password == "" {
		return response.BadRequest(c, "Password is required")
	}

	result, err := h.authService.Login(c.Context(), req.Email, req.Password, c.IP())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthenticated):
			return response.Unauthorized(c, "Invalid email or password")
		default:
			return response.InternalServerError(c, "Failed to login")
		}
	}

	h.setSessionCookies(c, result)

	return response.Success(c, "Login successful", fiber.Map{
		"member":     result.Member.ToResponse(time.Now()),
		"csrf_token": result.CsrfToken,
		"expires_at": result.ExpiresAt,
	})
}

// Logout handles member logout
// @Summary Logout member
// @Description Revoke the current session
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token := c.Cookies(middleware.SessionCookie); token != "" {
		_ = h.authService.Logout(c.Context(), token)
	}

	h.clearSessionCookies(c)

	return response.Success(c, "Logged out successfully", nil)
}

// LogoutAll handles logout from all devices
// @Summary Logout from all devices
// @Description Revoke every session held by the member
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	member := middleware.CurrentMember(c)
	if member == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	if err := h.authService.LogoutAll(c.Context(), member.ID); err != nil {
		return response.InternalServerError(c, "Failed to logout from all devices")
	}

	h.clearSessionCookies(c)

	return response.Success(c, "Logged out from all devices", nil)
}

// Me returns the current member info
// @Summary Get current member
// @Description Get the authenticated member's profile and standing
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	member := middleware.CurrentMember(c)
	if member == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	return response.Success(c, "Member retrieved successfully", fiber.Map{
		"member": member.ToResponse(time.Now()),
	})
}

// RefreshCsrf rotates the CSRF token for the current session, for
// clients that lost the readable cookie
// @Summary Refresh CSRF token
// @Description Issue a replacement CSRF token for the current session
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/csrf [post]
func (h *AuthHandler) RefreshCsrf(c *fiber.Ctx) error {
	sessionID := middleware.CurrentSessionID(c)
	if sessionID == "" {
		return response.Unauthorized(c, "Unauthorized")
	}

	token, err := h.authService.RotateCsrf(c.Context(), sessionID)
	if err != nil {
		return response.InternalServerError(c, "Failed to refresh CSRF token")
	}

	c.Cookie(&fiber.Cookie{
		Name:     CsrfCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   h.cfg.Session.TTLHours * 3600,
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: false,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})

	return response.Success(c, "CSRF token refreshed", fiber.Map{
		"csrf_token": token,
	})
}

// ChangePassword handles password change
// @Summary Change password
// @Description Change the member's password and revoke all sessions
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body ChangePasswordRequest true "Password change data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/password [put]
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	member := middleware.CurrentMember(c)
	if member == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return response.BadRequest(c, "Current and new password are required")
	}

	actor := middleware.CurrentActor(c)
	err := h.authService.ChangePassword(c.Context(), actor, member.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthenticated):
			return response.Unauthorized(c, "Current password is incorrect")
		case errors.Is(err, password.ErrPasswordTooShort):
			return response.BadRequest(c, "Password must be at least 8 characters")
		default:
			return response.InternalServerError(c, "Failed to change password")
		}
	}

	h.clearSessionCookies(c)

	return response.Success(c, "Password changed, please login again", nil)
}

// setSessionCookies sets the session and CSRF cookies
func (h *AuthHandler) setSessionCookies(c *fiber.Ctx, result *services.LoginResult) {
	maxAge := int(time.Until(result.ExpiresAt).Seconds())

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    result.SessionToken,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})

	// Readable by the SPA so it can echo the token in X-CSRF-Token
	c.Cookie(&fiber.Cookie{
		Name:     CsrfCookie,
		Value:    result.CsrfToken,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: false,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})
}

// clearSessionCookies clears the session and CSRF cookies
func (h *AuthHandler) clearSessionCookies(c *fiber.Ctx) {
	for _, name := range []string{middleware.SessionCookie, CsrfCookie} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Now().Add(-1 * time.Hour),
			Secure:   h.cfg.Cookie.Secure,
			HTTPOnly: name == middleware.SessionCookie,
			SameSite: h.cfg.Cookie.SameSite,
			Domain:   h.cfg.Cookie.Domain,
		})
	}
}
