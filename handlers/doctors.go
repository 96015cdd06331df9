package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medcita/clinic-backend/apperr"
	"github.com/medcita/clinic-backend/database"
	"github.com/medcita/clinic-backend/middleware"
	"github.com/medcita/clinic-backend/models"
)

type doctorRequest struct {
	Specialty       string                 `json:"specialty"`
	License         string                 `json:"license"`
	ExperienceYears int                    `json:"experience_years"`
	ConsultationFee float64                `json:"consultation_fee"`
	Schedule        []models.ScheduleEntry `json:"schedule"`
}

type scheduleRequest struct {
	Schedule []models.ScheduleEntry `json:"schedule"`
}

const listDoctorsSQL = `SELECT d.id, d.user_id, d.specialty, d.license, d.experience_years, d.consultation_fee,
	 d.schedule, d.created_at, d.updated_at, u.name, u.email
	 FROM doctors d
	 JOIN users u ON d.user_id = u.id
	 ORDER BY u.name`

const getDoctorSQL = `SELECT d.id, d.user_id, d.specialty, d.license, d.experience_years, d.consultation_fee,
	 d.schedule, d.created_at, d.updated_at, u.name, u.email
	 FROM doctors d
	 JOIN users u ON d.user_id = u.id
	 WHERE d.id = $1`

const insertDoctorSQL = `INSERT INTO doctors (user_id, specialty, license, experience_years, consultation_fee, schedule)
	 VALUES ($1, $2, $3, $4, $5, $6)
	 RETURNING id, created_at, updated_at`

const updateScheduleSQL = `UPDATE doctors SET schedule = $1, updated_at = now() WHERE user_id = $2`

// ListDoctors returns the public doctor directory.
func ListDoctors(c *fiber.Ctx) error {
	doctors, err := fetchDoctors(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"doctors": doctors,
		"total":   len(doctors),
	})
}

func fetchDoctors(c *fiber.Ctx) ([]models.DoctorResponse, error) {
	rows, err := database.GetDB().Query(c.Context(), listDoctorsSQL)
	if err != nil {
		return nil, apperr.Internal("failed to list doctors", err)
	}
	defer rows.Close()

	doctors := []models.DoctorResponse{}
	for rows.Next() {
		doctor, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, doctor)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to list doctors", err)
	}
	return doctors, nil
}

func scanDoctor(row pgx.Row) (models.DoctorResponse, error) {
	var (
		doctor      models.DoctorResponse
		scheduleRaw []byte
	)
	err := row.Scan(
		&doctor.ID, &doctor.UserID, &doctor.Specialty, &doctor.License,
		&doctor.ExperienceYears, &doctor.ConsultationFee, &scheduleRaw,
		&doctor.CreatedAt, &doctor.UpdatedAt, &doctor.Name, &doctor.Email,
	)
	if err != nil {
		return models.DoctorResponse{}, err
	}
	doctor.Schedule, err = models.UnmarshalSchedule(scheduleRaw)
	if err != nil {
		return models.DoctorResponse{}, apperr.Internal("failed to decode schedule", err)
	}
	return doctor, nil
}

// GetDoctor returns one doctor profile with directory fields.
func GetDoctor(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return apperr.Validation("invalid doctor id")
	}

	doctor, err := scanDoctor(database.GetDB().QueryRow(c.Context(), getDoctorSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("doctor not found")
	}
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperr.Internal("failed to load doctor", err)
	}

	return c.JSON(fiber.Map{"doctor": doctor})
}

// CreateDoctor attaches a professional profile to the authenticated
// doctor-role user. One profile per user; the license number is unique.
func CreateDoctor(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperr.Authentication("authorization token required")
	}

	var req doctorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := validateDoctorRequest(req); err != nil {
		return err
	}

	var exists bool
	err := database.GetDB().QueryRow(c.Context(),
		"SELECT EXISTS(SELECT 1 FROM doctors WHERE user_id = $1)", identity.UserID).Scan(&exists)
	if err != nil {
		return apperr.Internal("failed to check doctor profile", err)
	}
	if exists {
		return apperr.Conflict("doctor profile already exists")
	}

	doctor := models.Doctor{
		UserID:          identity.UserID,
		Specialty:       req.Specialty,
		License:         req.License,
		ExperienceYears: req.ExperienceYears,
		ConsultationFee: req.ConsultationFee,
		Schedule:        req.Schedule,
	}

	err = database.GetDB().QueryRow(c.Context(), insertDoctorSQL,
		doctor.UserID, doctor.Specialty, doctor.License, doctor.ExperienceYears,
		doctor.ConsultationFee, models.MarshalSchedule(doctor.Schedule),
	).Scan(&doctor.ID, &doctor.CreatedAt, &doctor.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.Conflict("license is already registered")
		}
		return apperr.Internal("failed to create doctor profile", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "doctor profile created",
		"doctor":  doctor,
	})
}

func validateDoctorRequest(req doctorRequest) error {
	if req.Specialty == "" {
		return apperr.Validation("specialty is required")
	}
	if req.License == "" {
		return apperr.Validation("license is required")
	}
	if req.ExperienceYears < 0 {
		return apperr.Validation("experience_years cannot be negative")
	}
	if req.ConsultationFee < 0 {
		return apperr.Validation("consultation_fee cannot be negative")
	}
	if err := models.ValidateSchedule(req.Schedule); err != nil {
		return apperr.Validation(err.Error())
	}
	return nil
}

// UpdateDoctorSchedule replaces the authenticated doctor's weekly template.
func UpdateDoctorSchedule(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperr.Authentication("authorization token required")
	}

	var req scheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := models.ValidateSchedule(req.Schedule); err != nil {
		return apperr.Validation(err.Error())
	}

	tag, err := database.GetDB().Exec(c.Context(), updateScheduleSQL,
		models.MarshalSchedule(req.Schedule), identity.UserID)
	if err != nil {
		return apperr.Internal("failed to update schedule", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("doctor profile not found")
	}

	return c.JSON(fiber.Map{
		"message":  "schedule updated",
		"schedule": req.Schedule,
	})
}
