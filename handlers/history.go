package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/medcita/clinic-backend/apperr"
	"github.com/medcita/clinic-backend/database"
	"github.com/medcita/clinic-backend/middleware"
	"github.com/medcita/clinic-backend/models"
	"github.com/medcita/clinic-backend/policy"
)

type historyRequest struct {
	Allergies         []string                  `json:"allergies"`
	ChronicConditions []models.ChronicCondition `json:"chronic_conditions"`
	BloodType         string                    `json:"blood_type"`
	Notes             string                    `json:"notes"`
}

const getHistorySQL = `SELECT id, patient_id, allergies, chronic_conditions, blood_type, notes, updated_at
	 FROM medical_histories WHERE patient_id = $1`

const upsertHistorySQL = `INSERT INTO medical_histories (patient_id, allergies, chronic_conditions, blood_type, notes, updated_at)
	 VALUES ($1, $2, $3, $4, $5, now())
	 ON CONFLICT (patient_id) DO UPDATE
	 SET allergies = EXCLUDED.allergies, chronic_conditions = EXCLUDED.chronic_conditions,
	     blood_type = EXCLUDED.blood_type, notes = EXCLUDED.notes, updated_at = now()`

// GetMedicalHistory returns a patient's clinical background. A patient who has
// no stored history yet gets an empty one rather than a not-found.
func GetMedicalHistory(c *fiber.Ctx) error {
	patientID, err := strconv.Atoi(c.Params("patient_id"))
	if err != nil || patientID <= 0 {
		return apperr.Validation("invalid patient id")
	}

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperr.Authentication("authorization token required")
	}
	actor := policy.Actor{UserID: identity.UserID, Role: identity.Role}
	if decision := policy.ViewMedicalHistory(actor, patientID); !decision.Allowed {
		return apperr.Authorization(decision.Reason)
	}

	exists, err := patientExists(c, patientID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("patient not found")
	}

	var (
		history       models.MedicalHistory
		allergiesRaw  []byte
		conditionsRaw []byte
	)
	err = database.GetDB().QueryRow(c.Context(), getHistorySQL, patientID).Scan(
		&history.ID, &history.PatientID, &allergiesRaw, &conditionsRaw,
		&history.BloodType, &history.Notes, &history.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return c.JSON(fiber.Map{"history": models.MedicalHistory{
			PatientID:         patientID,
			Allergies:         []string{},
			ChronicConditions: []models.ChronicCondition{},
		}})
	}
	if err != nil {
		return apperr.Internal("failed to load medical history", err)
	}

	if history.Allergies, err = models.UnmarshalStringList(allergiesRaw); err != nil {
		return apperr.Internal("failed to decode medical history", err)
	}
	if history.ChronicConditions, err = models.UnmarshalConditions(conditionsRaw); err != nil {
		return apperr.Internal("failed to decode medical history", err)
	}

	return c.JSON(fiber.Map{"history": history})
}

// UpdateMedicalHistory upserts a patient's clinical background.
func UpdateMedicalHistory(c *fiber.Ctx) error {
	patientID, err := strconv.Atoi(c.Params("patient_id"))
	if err != nil || patientID <= 0 {
		return apperr.Validation("invalid patient id")
	}

	var req historyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if !models.ValidBloodType(req.BloodType) {
		return apperr.Validation("invalid blood type")
	}

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperr.Authentication("authorization token required")
	}
	actor := policy.Actor{UserID: identity.UserID, Role: identity.Role}
	if decision := policy.UpdateMedicalHistory(actor, patientID); !decision.Allowed {
		return apperr.Authorization(decision.Reason)
	}

	exists, err := patientExists(c, patientID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("patient not found")
	}

	_, err = database.GetDB().Exec(c.Context(), upsertHistorySQL,
		patientID,
		models.MarshalStringList(req.Allergies),
		models.MarshalConditions(req.ChronicConditions),
		req.BloodType,
		req.Notes,
	)
	if err != nil {
		return apperr.Internal("failed to save medical history", err)
	}

	middleware.LogEvent(models.LogLevelInfo, "medical history updated", identity, map[string]interface{}{
		"patient_id": patientID,
	})

	return c.JSON(fiber.Map{"message": "medical history saved"})
}
