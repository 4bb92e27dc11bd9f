package routes

import (
	"hospital-booking-server/internal/config"
	"hospital-booking-server/internal/handlers"
	"hospital-booking-server/internal/middleware"
	"hospital-booking-server/internal/models"
	"hospital-booking-server/internal/notify"
	"hospital-booking-server/internal/realtime"
	"hospital-booking-server/internal/scheduling"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, hub *realtime.Hub, notifier *notify.Service) {
	ledger := scheduling.NewLedger(db)
	lifecycle := scheduling.NewLifecycle(db, hub)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg, notifier)
	publicHandler := handlers.NewPublicHandler(db, ledger)
	doctorHandler := handlers.NewDoctorHandler(db, ledger, lifecycle)
	patientHandler := handlers.NewPatientHandler(db, lifecycle)
	appointmentHandler := handlers.NewAppointmentHandler(db, lifecycle)
	departmentHandler := handlers.NewDepartmentHandler(db)
	medicalHistoryHandler := handlers.NewMedicalHistoryHandler(db)
	adminHandler := handlers.NewAdminHandler(db, notifier)

	// Public routes (no authentication required)
	public := router.Group("/api")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/logout", authHandler.Logout)
		}

		// Browsing endpoints used by the booking front end before login
		public.GET("/public/departments", publicHandler.GetDepartments)
		public.GET("/public/doctors", publicHandler.GetDoctors)
		public.GET("/public/doctors/:id", publicHandler.GetDoctorByID)
	}

	// Authenticated routes
	private := router.Group("/api")
	private.Use(middleware.AuthMiddleware(db, cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// Doctor routes
		doctorRoutes := private.Group("/doctors")
		{
			doctorRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleAdmin), doctorHandler.CreateDoctor)
			doctorRoutes.GET("", doctorHandler.GetDoctors)
			doctorRoutes.GET("/:id", doctorHandler.GetDoctorByID)
			doctorRoutes.GET("/:id/availability", doctorHandler.GetAvailability)

			// Self-or-admin checks happen inside the handlers
			doctorRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), doctorHandler.UpdateDoctor)
			doctorRoutes.PUT("/:id/availability", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), doctorHandler.SetAvailability)
			doctorRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), doctorHandler.DeleteDoctor)

			// Dashboard endpoints; handlers restrict them to the doctor
			// themselves or an admin
			doctorRoutes.GET("/:id/stats", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), doctorHandler.GetStats)
			doctorRoutes.GET("/:id/patients", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), doctorHandler.GetPatients)
			doctorRoutes.GET("/:id/appointments", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), doctorHandler.GetAppointments)
		}

		// Patient routes
		patientRoutes := private.Group("/patients")
		{
			patientRoutes.POST("/register", middleware.RoleAuthMiddleware(models.RoleAdmin), patientHandler.RegisterPatient)
			patientRoutes.GET("", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), patientHandler.GetPatients)
			patientRoutes.GET("/:id", patientHandler.GetPatientByID)
			patientRoutes.PUT("/:id", patientHandler.UpdatePatient)
			patientRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), patientHandler.DeletePatient)

			patientRoutes.POST("/book-appointment", middleware.RoleAuthMiddleware(models.RolePatient), patientHandler.BookAppointment)
			patientRoutes.GET("/my-appointments", middleware.RoleAuthMiddleware(models.RolePatient), patientHandler.MyAppointments)
			patientRoutes.GET("/my-medical-history", middleware.RoleAuthMiddleware(models.RolePatient), patientHandler.MyMedicalHistory)
		}

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointments) // Logic inside handler differentiates by role
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), appointmentHandler.UpdateAppointment)
			appointmentRoutes.PUT("/:id/status", appointmentHandler.UpdateAppointmentStatus) // Authorization inside handler
			appointmentRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), appointmentHandler.DeleteAppointment)
		}

		// Department routes
		departmentRoutes := private.Group("/departments")
		{
			departmentRoutes.GET("", departmentHandler.GetDepartments)
			departmentRoutes.GET("/:id", departmentHandler.GetDepartmentByID)

			adminDepartmentRoutes := departmentRoutes.Group("")
			adminDepartmentRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminDepartmentRoutes.POST("", departmentHandler.CreateDepartment)
				adminDepartmentRoutes.PUT("/:id", departmentHandler.UpdateDepartment)
				adminDepartmentRoutes.DELETE("/:id", departmentHandler.DeleteDepartment)
			}
		}

		// Medical record routes
		medicalHistoryRoutes := private.Group("/medical-history")
		{
			medicalHistoryRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), medicalHistoryHandler.CreateMedicalRecord)
			medicalHistoryRoutes.GET("/patient/:patientId", medicalHistoryHandler.GetRecordsByPatient) // Auth in handler
			medicalHistoryRoutes.GET("/doctor-patients", middleware.RoleAuthMiddleware(models.RoleDoctor), medicalHistoryHandler.GetDoctorPatients)
			medicalHistoryRoutes.GET("/:id", medicalHistoryHandler.GetRecordByID) // Auth in handler
			medicalHistoryRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), medicalHistoryHandler.UpdateMedicalRecord)
		}

		// Admin routes
		adminRoutes := private.Group("/admin")
		adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			adminRoutes.GET("/users", adminHandler.GetUsers)
			adminRoutes.GET("/doctors/pending", adminHandler.GetPendingDoctors)
			adminRoutes.PUT("/verify-doctor/:id", adminHandler.VerifyDoctor)
			adminRoutes.PUT("/validate-user/:id", adminHandler.ValidateUser)
			adminRoutes.GET("/stats", adminHandler.GetStats)
		}

	}

	// Real-time appointment event stream. The upgrade request authenticates
	// with ?token= since browsers cannot set headers on WebSocket connects.
	router.GET("/ws", middleware.AuthMiddleware(db, cfg), hub.HandleConnect)

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
