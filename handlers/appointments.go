package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medcita/clinic-backend/apperr"
	"github.com/medcita/clinic-backend/database"
	"github.com/medcita/clinic-backend/middleware"
	"github.com/medcita/clinic-backend/models"
	"github.com/medcita/clinic-backend/policy"
	"github.com/medcita/clinic-backend/schedule"
)

const dateLayout = "2006-01-02"

// uniqueViolation is the Postgres error code raised by the partial unique
// index when two bookings race for the same slot.
const uniqueViolation = "23505"

type createAppointmentRequest struct {
	DoctorID int    `json:"doctor_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Type     string `json:"type"`
	Symptoms string `json:"symptoms"`
}

type updateStatusRequest struct {
	Status       string                    `json:"status"`
	Diagnosis    string                    `json:"diagnosis,omitempty"`
	Prescription []models.PrescriptionItem `json:"prescription,omitempty"`
	Notes        string                    `json:"notes,omitempty"`
}

// appointmentDetail is an appointment joined with both party names.
type appointmentDetail struct {
	models.Appointment
	PatientName string `json:"patient_name"`
	DoctorName  string `json:"doctor_name"`
}

const insertAppointmentSQL = `INSERT INTO appointments (patient_id, doctor_id, date, time, type, symptoms, status)
	 VALUES ($1, $2, $3, $4, $5, $6, $7)
	 RETURNING id, created_at, updated_at`

const getAppointmentSQL = `SELECT a.id, a.patient_id, a.doctor_id, a.date, a.time, a.type, a.symptoms,
	 a.diagnosis, a.prescription, a.notes, a.status, a.created_at, a.updated_at, p.name, u.name
	 FROM appointments a
	 JOIN users p ON a.patient_id = p.id
	 JOIN doctors d ON a.doctor_id = d.id
	 JOIN users u ON d.user_id = u.id
	 WHERE a.id = $1`

const listByPatientSQL = `SELECT a.id, a.patient_id, a.doctor_id, a.date, a.time, a.type, a.symptoms,
	 a.diagnosis, a.prescription, a.notes, a.status, a.created_at, a.updated_at, p.name, u.name
	 FROM appointments a
	 JOIN users p ON a.patient_id = p.id
	 JOIN doctors d ON a.doctor_id = d.id
	 JOIN users u ON d.user_id = u.id
	 WHERE a.patient_id = $1
	 ORDER BY a.date, a.time`

const listByDoctorSQL = `SELECT a.id, a.patient_id, a.doctor_id, a.date, a.time, a.type, a.symptoms,
	 a.diagnosis, a.prescription, a.notes, a.status, a.created_at, a.updated_at, p.name, u.name
	 FROM appointments a
	 JOIN users p ON a.patient_id = p.id
	 JOIN doctors d ON a.doctor_id = d.id
	 JOIN users u ON d.user_id = u.id
	 WHERE a.doctor_id = $1
	 ORDER BY a.date, a.time`

const bookedTimesSQL = `SELECT time FROM appointments
	 WHERE doctor_id = $1 AND date = $2 AND status <> 'cancelled'
	 ORDER BY time`

const updateStatusSQL = `UPDATE appointments SET status = $1, updated_at = now()
	 WHERE id = $2 AND status = $3`

const completeAppointmentSQL = `UPDATE appointments SET status = $1, diagnosis = $2, prescription = $3, notes = $4, updated_at = now()
	 WHERE id = $5 AND status = $6`

// CreateAppointment books a slot for the authenticated patient. The INSERT is
// the availability check: the partial unique index on (doctor_id, date, time)
// rejects a second non-cancelled booking, so concurrent requests for the same
// slot cannot both succeed.
func CreateAppointment(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperr.Authentication("authorization token required")
	}

	var req createAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	if req.DoctorID <= 0 {
		return apperr.Validation("doctor_id is required")
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return apperr.Validation("date must be in YYYY-MM-DD format")
	}
	if !schedule.ValidSlot(req.Time) {
		return apperr.Validation("time is not a bookable slot")
	}
	if !models.ValidType(req.Type) {
		return apperr.Validation("invalid appointment type")
	}
	if req.Symptoms == "" {
		return apperr.Validation("symptoms are required")
	}

	exists, err := doctorExists(c, req.DoctorID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("doctor not found")
	}

	appt := models.Appointment{
		PatientID: identity.UserID,
		DoctorID:  req.DoctorID,
		Date:      date,
		Time:      req.Time,
		Type:      req.Type,
		Symptoms:  req.Symptoms,
		Status:    models.StatusPending,
	}

	err = database.GetDB().QueryRow(c.Context(), insertAppointmentSQL,
		appt.PatientID, appt.DoctorID, appt.Date, appt.Time, appt.Type, appt.Symptoms, appt.Status,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.Conflict("slot is not available")
		}
		return apperr.Internal("failed to create appointment", err)
	}

	middleware.LogEvent(models.LogLevelSuccess, "appointment created", identity, map[string]interface{}{
		"appointment_id": appt.ID,
		"doctor_id":      appt.DoctorID,
		"date":           req.Date,
		"time":           appt.Time,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "appointment created",
		"appointment": appt,
	})
}

// ListAppointments returns the caller's appointments: own bookings for a
// patient, the assigned agenda for a doctor.
func ListAppointments(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var (
		sql string
		arg int
	)
	switch actor.Role {
	case models.RolePatient:
		sql, arg = listByPatientSQL, actor.UserID
	case models.RoleDoctor:
		if actor.DoctorID == 0 {
			return c.JSON(fiber.Map{"appointments": []appointmentDetail{}, "total": 0})
		}
		sql, arg = listByDoctorSQL, actor.DoctorID
	default:
		return apperr.Authorization("insufficient permissions")
	}

	appointments, err := fetchAppointments(c, sql, arg)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"appointments": appointments,
		"total":        len(appointments),
	})
}

func fetchAppointments(c *fiber.Ctx, sql string, arg int) ([]appointmentDetail, error) {
	rows, err := database.GetDB().Query(c.Context(), sql, arg)
	if err != nil {
		return nil, apperr.Internal("failed to list appointments", err)
	}
	defer rows.Close()

	appointments := []appointmentDetail{}
	for rows.Next() {
		detail, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to list appointments", err)
	}
	return appointments, nil
}

func scanAppointment(row pgx.Row) (appointmentDetail, error) {
	var (
		detail       appointmentDetail
		prescription []byte
	)
	err := row.Scan(
		&detail.ID, &detail.PatientID, &detail.DoctorID, &detail.Date, &detail.Time,
		&detail.Type, &detail.Symptoms, &detail.Diagnosis, &prescription, &detail.Notes,
		&detail.Status, &detail.CreatedAt, &detail.UpdatedAt, &detail.PatientName, &detail.DoctorName,
	)
	if err != nil {
		return appointmentDetail{}, err
	}
	detail.Prescription, err = models.UnmarshalPrescription(prescription)
	if err != nil {
		return appointmentDetail{}, apperr.Internal("failed to decode prescription", err)
	}
	return detail, nil
}

// GetAppointment returns one appointment, visible only to its parties.
func GetAppointment(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return apperr.Validation("invalid appointment id")
	}

	detail, err := scanAppointment(database.GetDB().QueryRow(c.Context(), getAppointmentSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("appointment not found")
	}
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperr.Internal("failed to load appointment", err)
	}

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if decision := policy.ViewAppointment(actor, detail.Appointment); !decision.Allowed {
		return apperr.Authorization(decision.Reason)
	}

	return c.JSON(fiber.Map{"appointment": detail})
}

// UpdateAppointmentStatus drives the status machine. Authorization is decided
// first, then state legality, then a conditional UPDATE keyed on the observed
// status so a concurrent transition surfaces as a conflict.
func UpdateAppointmentStatus(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return apperr.Validation("invalid appointment id")
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if !models.ValidStatus(req.Status) {
		return apperr.Validation("invalid status")
	}

	var appt models.Appointment
	err = database.GetDB().QueryRow(c.Context(),
		"SELECT id, patient_id, doctor_id, date, time, type, symptoms, status FROM appointments WHERE id = $1", id,
	).Scan(&appt.ID, &appt.PatientID, &appt.DoctorID, &appt.Date, &appt.Time, &appt.Type, &appt.Symptoms, &appt.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("appointment not found")
	}
	if err != nil {
		return apperr.Internal("failed to load appointment", err)
	}

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if decision := policy.TransitionAppointment(actor, appt, req.Status); !decision.Allowed {
		return apperr.Authorization(decision.Reason)
	}
	if !models.CanTransition(appt.Status, req.Status) {
		return apperr.Conflict(fmt.Sprintf("cannot transition a %s appointment to %s", appt.Status, req.Status))
	}

	var tag pgconn.CommandTag
	if req.Status == models.StatusCompleted {
		tag, err = database.GetDB().Exec(c.Context(), completeAppointmentSQL,
			req.Status, req.Diagnosis, models.MarshalPrescription(req.Prescription), req.Notes, id, appt.Status)
	} else {
		tag, err = database.GetDB().Exec(c.Context(), updateStatusSQL, req.Status, id, appt.Status)
	}
	if err != nil {
		return apperr.Internal("failed to update appointment", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("appointment was modified concurrently")
	}

	middleware.LogEvent(models.LogLevelInfo, "appointment status changed",
		middleware.Identity{UserID: actor.UserID, Role: actor.Role}, map[string]interface{}{
			"appointment_id": id,
			"from":           appt.Status,
			"to":             req.Status,
		})

	return c.JSON(fiber.Map{
		"message": "appointment status updated",
		"status":  req.Status,
	})
}

// AvailableSlots computes the open slots for a doctor on a date: the fixed
// daily template minus non-cancelled bookings. Cancelled appointments free
// their slot.
func AvailableSlots(c *fiber.Ctx) error {
	doctorIDStr := c.Query("doctor_id")
	dateStr := c.Query("date")
	if doctorIDStr == "" || dateStr == "" {
		return apperr.Validation("doctor_id and date are required")
	}

	doctorID, err := strconv.Atoi(doctorIDStr)
	if err != nil || doctorID <= 0 {
		return apperr.Validation("invalid doctor_id")
	}
	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return apperr.Validation("date must be in YYYY-MM-DD format")
	}

	exists, err := doctorExists(c, doctorID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("doctor not found")
	}

	rows, err := database.GetDB().Query(c.Context(), bookedTimesSQL, doctorID, date)
	if err != nil {
		return apperr.Internal("failed to load booked slots", err)
	}
	defer rows.Close()

	var booked []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return apperr.Internal("failed to load booked slots", err)
		}
		booked = append(booked, t)
	}
	if err := rows.Err(); err != nil {
		return apperr.Internal("failed to load booked slots", err)
	}

	return c.JSON(fiber.Map{
		"doctor_id":       doctorID,
		"date":            dateStr,
		"available_slots": schedule.Available(booked),
	})
}
