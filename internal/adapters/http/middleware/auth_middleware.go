package middleware

import (
	"errors"
	"time"

	"clubdesk/internal/adapters/persistence/models"
	"clubdesk/internal/core/domain"
	"clubdesk/internal/core/services"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the cookie carrying the raw session token
const SessionCookie = "session"

// CsrfHeader carries the CSRF token on mutating requests
const CsrfHeader = "X-CSRF-Token"

// Locals keys set by the auth middleware
const (
	LocalMember    = "member"
	LocalSessionID = "session_id"
)

// AuthRequired resolves the session cookie to a member and stores it
// in locals. Unknown and expired sessions both yield 401.
func AuthRequired(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		member, session, err := auth.ValidateSession(c.Context(), c.Cookies(SessionCookie))
		if err != nil {
			if errors.Is(err, domain.ErrUnauthenticated) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"success": false,
					"error":   "Authentication required",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "Internal server error",
			})
		}

		c.Locals(LocalMember, member)
		c.Locals(LocalSessionID, session.ID)
		return c.Next()
	}
}

// CsrfProtection validates the CSRF header on state-changing methods.
// Safe methods pass through. A valid session with a missing or wrong
// token is 403, distinct from the 401 of no session.
func CsrfProtection(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		sessionID, ok := c.Locals(LocalSessionID).(string)
		if !ok || sessionID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Authentication required",
			})
		}

		if err := auth.ValidateCsrf(c.Context(), sessionID, c.Get(CsrfHeader)); err != nil {
			if errors.Is(err, domain.ErrForbidden) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"success": false,
					"error":   "Invalid CSRF token",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "Internal server error",
			})
		}
		return c.Next()
	}
}

// RequireGoodStanding gates portal routes to members whose effective
// status is Active or Honorary. Standing is evaluated per request
// against the clock, so a lapsed member loses access on the next
// request without waiting for any sweep.
func RequireGoodStanding() fiber.Handler {
	return func(c *fiber.Ctx) error {
		member, ok := c.Locals(LocalMember).(*models.Member)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Authentication required",
			})
		}

		switch member.EffectiveStatus(time.Now()) {
		case models.StatusActive, models.StatusHonorary:
			return c.Next()
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "Membership not in good standing",
		})
	}
}

// AdminOnly restricts a route to admins
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		member, ok := c.Locals(LocalMember).(*models.Member)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Authentication required",
			})
		}
		if !member.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "Admin access required",
			})
		}
		return c.Next()
	}
}

// CurrentMember returns the authenticated member from locals
func CurrentMember(c *fiber.Ctx) *models.Member {
	member, _ := c.Locals(LocalMember).(*models.Member)
	return member
}

// CurrentSessionID returns the authenticated session id from locals
func CurrentSessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalSessionID).(string)
	return id
}

// CurrentActor builds the audit actor for the authenticated member
func CurrentActor(c *fiber.Ctx) services.Actor {
	member := CurrentMember(c)
	if member == nil {
		return services.SystemActor
	}
	return services.NewActor(member.ID, c.IP())
}
