package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"clubdesk/internal/adapters/http/middleware"
	"clubdesk/internal/adapters/http/routes"
	"clubdesk/internal/adapters/persistence/models"
	"clubdesk/internal/config"

	"github.com/gofiber/fiber/v2"

	_ "clubdesk/docs" // Swagger docs
)

// @title ClubDesk API
// @version 1.0
// @description Club membership portal API: applications, dues, standing and member content.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@clubdesk.example.org

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host api.clubdesk.example.org
// @BasePath /api/v1
// @schemes https

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed master data, default settings and the bootstrap admin
	if err := config.SeedMasterData(db, cfg); err != nil {
		log.Printf("⚠️ Warning: Failed to seed master data: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "ClubDesk API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db and cfg for dependency injection)
	svcs := routes.Setup(app, db, cfg)

	// Scheduled sweeps: sessions hourly, dues daily
	if err := svcs.Sweeper.Start(); err != nil {
		log.Fatalf("❌ Failed to start sweeper: %v", err)
	}
	defer svcs.Sweeper.Stop()

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
