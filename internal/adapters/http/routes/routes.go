package routes

import (
	"clubdesk/internal/adapters/http/handlers"
	"clubdesk/internal/adapters/http/middleware"
	"clubdesk/internal/adapters/persistence/repositories"
	"clubdesk/internal/config"
	"clubdesk/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Services bundles the constructed service layer so main can share it
// with the sweeper
type Services struct {
	Auth       *services.AuthService
	Membership *services.MembershipService
	Payment    *services.PaymentService
	Member     *services.MemberService
	Master     *services.MasterService
	Content    *services.ContentService
	Settings   *services.SettingsService
	Sweeper    *services.SweeperService
}

// Setup configures all routes for the application and returns the
// wired services
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) *Services {
	// Initialize repositories
	txRunner := repositories.NewTxRunner(db)
	memberRepo := repositories.NewMemberRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	csrfRepo := repositories.NewCsrfTokenRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)

	// Master repositories
	membershipTypeRepo := repositories.NewMembershipTypeRepository(db)
	eventTypeRepo := repositories.NewEventTypeRepository(db)
	announcementTypeRepo := repositories.NewAnnouncementTypeRepository(db)

	// Content repositories
	eventRepo := repositories.NewEventRepository(db)
	announcementRepo := repositories.NewAnnouncementRepository(db)

	// Initialize services
	membershipService := services.NewMembershipService(memberRepo, membershipTypeRepo, settingsRepo, auditRepo, txRunner)
	authService := services.NewAuthService(memberRepo, sessionRepo, csrfRepo, membershipTypeRepo,
		settingsRepo, auditRepo, membershipService, txRunner, cfg)
	paymentService := services.NewPaymentService(paymentRepo, memberRepo, auditRepo, membershipService, txRunner)
	memberService := services.NewMemberService(memberRepo, membershipTypeRepo, auditRepo, txRunner)
	masterService := services.NewMasterService(membershipTypeRepo, eventTypeRepo, announcementTypeRepo)
	contentService := services.NewContentService(eventRepo, announcementRepo, eventTypeRepo, announcementTypeRepo)
	settingsService := services.NewSettingsService(settingsRepo, auditRepo, txRunner)
	sweeperService := services.NewSweeperService(authService, membershipService)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	memberHandler := handlers.NewMemberHandler(memberService, membershipService, sweeperService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, cfg)
	masterHandler := handlers.NewMasterHandler(masterService)
	contentHandler := handlers.NewContentHandler(contentService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Provider webhook. Authenticated by HMAC signature, not session.
	app.Post("/webhooks/payments", paymentHandler.Webhook)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	setupAPIV1Routes(apiV1, authService, authHandler, memberHandler, paymentHandler,
		masterHandler, contentHandler, settingsHandler)

	return &Services{
		Auth:       authService,
		Membership: membershipService,
		Payment:    paymentService,
		Member:     memberService,
		Master:     masterService,
		Content:    contentService,
		Settings:   settingsService,
		Sweeper:    sweeperService,
	}
}

// setupAPIV1Routes configures API v1 routes
func setupAPIV1Routes(
	router fiber.Router,
	authService *services.AuthService,
	authHandler *handlers.AuthHandler,
	memberHandler *handlers.MemberHandler,
	paymentHandler *handlers.PaymentHandler,
	masterHandler *handlers.MasterHandler,
	contentHandler *handlers.ContentHandler,
	settingsHandler *handlers.SettingsHandler,
) {
	authRequired := middleware.AuthRequired(authService)
	csrf := middleware.CsrfProtection(authService)
	goodStanding := middleware.RequireGoodStanding()
	adminOnly := middleware.AdminOnly()

	// Auth routes (public)
	authRoutes := router.Group("/auth")
	authRoutes.Post("/signup", middleware.AuthRateLimiter(), authHandler.Signup)
	authRoutes.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	authRoutes.Post("/logout", authHandler.Logout)

	// Auth routes (protected). CSRF refresh issues the token, so it is
	// guarded by the session alone.
	authRoutes.Get("/me", authRequired, authHandler.Me)
	authRoutes.Post("/csrf", authRequired, authHandler.RefreshCsrf)
	authRoutes.Post("/logout-all", authRequired, csrf, authHandler.LogoutAll)
	authRoutes.Put("/password", middleware.StrictRateLimiter(), authRequired, csrf, authHandler.ChangePassword)

	// Public catalog: applicants pick a membership type before signup
	router.Get("/types/membership", masterHandler.ListMembershipTypes)

	// Member self-service. Profile is reachable in any standing so a
	// lapsed member can still see their own status and pay.
	memberRoutes := router.Group("/members", authRequired, csrf)
	memberRoutes.Put("/me", memberHandler.UpdateProfile)

	paymentRoutes := router.Group("/payments", authRequired)
	paymentRoutes.Get("/me", paymentHandler.MyPayments)
	paymentRoutes.Post("/checkout", csrf, paymentHandler.Checkout)

	// Effective policies. Visible in any standing so a lapsed member can
	// see the grace rules that apply to them.
	router.Get("/policies", authRequired, settingsHandler.Policies)

	// Portal content: members in good standing only
	portalRoutes := router.Group("", authRequired, goodStanding)
	portalRoutes.Get("/events", contentHandler.ListEvents)
	portalRoutes.Get("/events/:id", contentHandler.GetEvent)
	portalRoutes.Get("/announcements", contentHandler.ListAnnouncements)
	portalRoutes.Get("/types/events", masterHandler.ListEventTypes)
	portalRoutes.Get("/types/announcements", masterHandler.ListAnnouncementTypes)

	// Admin routes
	adminRoutes := router.Group("/admin", authRequired, adminOnly, csrf)

	// Member management
	adminRoutes.Get("/members", memberHandler.List)
	adminRoutes.Post("/members", memberHandler.Create)
	adminRoutes.Get("/members/:id", memberHandler.Get)
	adminRoutes.Put("/members/:id", memberHandler.Update)
	adminRoutes.Get("/members/:id/history", memberHandler.History)
	adminRoutes.Get("/members/:id/payments", paymentHandler.ListByMember)

	// Standing transitions
	adminRoutes.Post("/members/:id/approve", memberHandler.Approve)
	adminRoutes.Post("/members/:id/reject", memberHandler.Reject)
	adminRoutes.Post("/members/:id/suspend", memberHandler.Suspend)
	adminRoutes.Post("/members/:id/reinstate", memberHandler.Reinstate)
	adminRoutes.Post("/members/:id/honorary", memberHandler.SetHonorary)
	adminRoutes.Post("/members/:id/bypass", memberHandler.SetBypass)

	// Payments
	adminRoutes.Post("/payments/manual", paymentHandler.RecordManual)
	adminRoutes.Post("/payments/waive", paymentHandler.Waive)
	adminRoutes.Post("/payments/:id/refund", paymentHandler.Refund)

	// Master data
	adminRoutes.Post("/types/membership", masterHandler.CreateMembershipType)
	adminRoutes.Put("/types/membership/:id", masterHandler.UpdateMembershipType)
	adminRoutes.Post("/types/events", masterHandler.CreateEventType)
	adminRoutes.Put("/types/events/:id", masterHandler.UpdateEventType)
	adminRoutes.Post("/types/announcements", masterHandler.CreateAnnouncementType)
	adminRoutes.Put("/types/announcements/:id", masterHandler.UpdateAnnouncementType)

	// Content management
	adminRoutes.Get("/announcements", contentHandler.ListAllAnnouncements)
	adminRoutes.Post("/announcements", contentHandler.CreateAnnouncement)
	adminRoutes.Put("/announcements/:id", contentHandler.UpdateAnnouncement)
	adminRoutes.Delete("/announcements/:id", contentHandler.DeleteAnnouncement)
	adminRoutes.Post("/events", contentHandler.CreateEvent)
	adminRoutes.Put("/events/:id", contentHandler.UpdateEvent)
	adminRoutes.Delete("/events/:id", contentHandler.DeleteEvent)

	// Settings
	adminRoutes.Get("/settings", settingsHandler.List)
	adminRoutes.Put("/settings/:key", settingsHandler.Update)

	// Maintenance
	adminRoutes.Post("/sweeps/dues", memberHandler.RunDuesSweep)
}
