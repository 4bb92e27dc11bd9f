package main

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"hospital-booking-server/internal/config"
	"hospital-booking-server/internal/models"
	"hospital-booking-server/internal/notify"
	"hospital-booking-server/internal/realtime"
	"hospital-booking-server/internal/routes"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load environment variables; a missing .env file is fine in production
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using process environment")
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	// Initialize database connection; InitDB migrates the schema
	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	// Notification channels are optional; unconfigured ones stay nil and the
	// service skips them.
	var mailer notify.Mailer
	if cfg.Mailer.Enabled() {
		mailer = notify.NewSMTPMailer(cfg.Mailer)
	}
	var sms notify.SMSSender
	if cfg.SMS.Enabled() {
		sms = notify.NewHTTPSMSClient(cfg.SMS)
	}
	notifier := notify.NewService(mailer, sms, log)

	// Real-time event hub for appointment updates
	hub := realtime.NewHub(log)

	// Initialize Gin router
	router := gin.Default()

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Set up routes - passing DB and config to let routes.go create the handlers
	routes.SetupRoutes(router, db, cfg, hub, notifier)

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	log.Infof("Server running on port %s", cfg.Port)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
