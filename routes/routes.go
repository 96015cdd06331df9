package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/medcita/clinic-backend/handlers"
	"github.com/medcita/clinic-backend/middleware"
	"github.com/medcita/clinic-backend/models"
)

// SetupRoutes wires the middleware chain and the API surface.
func SetupRoutes(app *fiber.App) {
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.DefaultRateLimiter())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Clinic Appointment API",
			"version": "1.0.0",
		})
	})

	api := app.Group("/api/v1")

	// Credential endpoints carry a stricter rate limit.
	auth := api.Group("/auth", middleware.AuthRateLimiter())
	auth.Post("/register", handlers.Register)
	auth.Post("/login", handlers.Login)
	auth.Post("/refresh", handlers.Refresh)
	auth.Post("/logout", middleware.AuthRequired(), handlers.Logout)

	protected := api.Group("/", middleware.AuthRequired())

	users := protected.Group("/users")
	users.Get("/me", handlers.Me)

	mfa := protected.Group("/mfa")
	mfa.Post("/setup", handlers.SetupMFA)
	mfa.Post("/verify", handlers.VerifyMFA)
	mfa.Post("/disable", handlers.DisableMFA)

	doctors := protected.Group("/doctors")
	doctors.Get("/", handlers.ListDoctors)
	doctors.Post("/", middleware.RequireRole(models.RoleDoctor), handlers.CreateDoctor)
	doctors.Put("/schedule", middleware.RequireRole(models.RoleDoctor), handlers.UpdateDoctorSchedule)
	doctors.Get("/:id", handlers.GetDoctor)

	// The static segment must register before the :id parameter.
	appointments := protected.Group("/appointments")
	appointments.Get("/available-slots", handlers.AvailableSlots)
	appointments.Post("/", middleware.RequireRole(models.RolePatient), handlers.CreateAppointment)
	appointments.Get("/", handlers.ListAppointments)
	appointments.Get("/:id", handlers.GetAppointment)
	appointments.Put("/:id/status", handlers.UpdateAppointmentStatus)

	histories := protected.Group("/medical-histories")
	histories.Get("/:patient_id", handlers.GetMedicalHistory)
	histories.Put("/:patient_id", handlers.UpdateMedicalHistory)

	protected.Get("/dashboard", handlers.Dashboard)
	protected.Get("/logs/me", handlers.MyLogs)
}
