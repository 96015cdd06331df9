package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/medcita/clinic-backend/apperr"
	"github.com/medcita/clinic-backend/database"
	"github.com/medcita/clinic-backend/middleware"
	"github.com/medcita/clinic-backend/models"
	"github.com/medcita/clinic-backend/policy"
)

// actorFrom resolves the caller into a policy.Actor. Doctor callers get their
// doctor profile ID attached so assignment checks can compare against
// appointments.doctor_id; a doctor without a profile keeps DoctorID zero.
func actorFrom(c *fiber.Ctx) (policy.Actor, error) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return policy.Actor{}, apperr.Authentication("authorization token required")
	}

	actor := policy.Actor{UserID: identity.UserID, Role: identity.Role}
	if identity.Role == models.RoleDoctor {
		doctorID, err := doctorIDForUser(c, identity.UserID)
		if err != nil {
			return policy.Actor{}, err
		}
		actor.DoctorID = doctorID
	}
	return actor, nil
}

func doctorIDForUser(c *fiber.Ctx, userID int) (int, error) {
	var id int
	err := database.GetDB().QueryRow(c.Context(),
		"SELECT id FROM doctors WHERE user_id = $1", userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, apperr.Internal("failed to resolve doctor profile", err)
	}
	return id, nil
}

func doctorExists(c *fiber.Ctx, doctorID int) (bool, error) {
	var exists bool
	err := database.GetDB().QueryRow(c.Context(),
		"SELECT EXISTS(SELECT 1 FROM doctors WHERE id = $1)", doctorID).Scan(&exists)
	if err != nil {
		return false, apperr.Internal("failed to check doctor", err)
	}
	return exists, nil
}

func patientExists(c *fiber.Ctx, patientID int) (bool, error) {
	var exists bool
	err := database.GetDB().QueryRow(c.Context(),
		"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND role = 'patient')", patientID).Scan(&exists)
	if err != nil {
		return false, apperr.Internal("failed to check patient", err)
	}
	return exists, nil
}
