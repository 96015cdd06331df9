package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/medcita/clinic-backend/apperr"
	"github.com/medcita/clinic-backend/database"
	"github.com/medcita/clinic-backend/middleware"
	"github.com/medcita/clinic-backend/models"
)

// setupMock swaps the database for a pgxmock pool for the duration of a test.
// Audit entries are discarded so their asynchronous writes cannot touch the
// pool expectations of this test or the next one.
func setupMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	database.SetDB(mock)
	t.Cleanup(mock.Close)
	middleware.SetAuditSink(func(models.RequestLog) {})
	t.Cleanup(func() { middleware.SetAuditSink(nil) })
	return mock
}

// newTestApp builds a fiber app with the production error handler and the
// protected route surface used by handler tests. The request logger is left
// out; domain audit entries land in the discarded sink from setupMock.
func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler})

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", Register)
	auth.Post("/login", Login)
	auth.Post("/refresh", Refresh)

	protected := api.Group("/", middleware.AuthRequired())
	protected.Get("/users/me", Me)

	mfa := protected.Group("/mfa")
	mfa.Post("/setup", SetupMFA)
	mfa.Post("/verify", VerifyMFA)
	mfa.Post("/disable", DisableMFA)

	doctors := protected.Group("/doctors")
	doctors.Get("/", ListDoctors)
	doctors.Post("/", middleware.RequireRole(models.RoleDoctor), CreateDoctor)
	doctors.Put("/schedule", middleware.RequireRole(models.RoleDoctor), UpdateDoctorSchedule)
	doctors.Get("/:id", GetDoctor)

	appointments := protected.Group("/appointments")
	appointments.Get("/available-slots", AvailableSlots)
	appointments.Post("/", middleware.RequireRole(models.RolePatient), CreateAppointment)
	appointments.Get("/", ListAppointments)
	appointments.Get("/:id", GetAppointment)
	appointments.Put("/:id/status", UpdateAppointmentStatus)

	histories := protected.Group("/medical-histories")
	histories.Get("/:patient_id", GetMedicalHistory)
	histories.Put("/:patient_id", UpdateMedicalHistory)

	protected.Get("/dashboard", Dashboard)
	protected.Get("/logs/me", MyLogs)

	return app
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func authedRequest(t *testing.T, method, path string, body interface{}, userID int, role string) *http.Request {
	t.Helper()
	req := jsonRequest(t, method, path, body)
	token, err := middleware.GenerateJWT(userID, role)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
