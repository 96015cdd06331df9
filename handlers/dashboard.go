package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/medcita/clinic-backend/models"
)

// Dashboard returns a role-scoped landing payload: a patient sees their
// bookings and the doctor directory, a doctor sees their agenda.
func Dashboard(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	switch actor.Role {
	case models.RoleDoctor:
		appointments := []appointmentDetail{}
		if actor.DoctorID != 0 {
			appointments, err = fetchAppointments(c, listByDoctorSQL, actor.DoctorID)
			if err != nil {
				return err
			}
		}
		return c.JSON(fiber.Map{
			"role":         models.RoleDoctor,
			"appointments": appointments,
			"total":        len(appointments),
		})

	case models.RolePatient:
		appointments, err := fetchAppointments(c, listByPatientSQL, actor.UserID)
		if err != nil {
			return err
		}
		doctors, err := fetchDoctors(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"role":         models.RolePatient,
			"appointments": appointments,
			"total":        len(appointments),
			"doctors":      doctors,
		})
	}

	return c.JSON(fiber.Map{"role": actor.Role})
}
