package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medcita/clinic-backend/models"
)

var appt = models.Appointment{
	ID:        10,
	PatientID: 1,
	DoctorID:  5,
	Status:    models.StatusPending,
}

var (
	owningPatient  = Actor{UserID: 1, Role: models.RolePatient}
	otherPatient   = Actor{UserID: 2, Role: models.RolePatient}
	assignedDoctor = Actor{UserID: 7, Role: models.RoleDoctor, DoctorID: 5}
	otherDoctor    = Actor{UserID: 8, Role: models.RoleDoctor, DoctorID: 6}
)

func TestViewAppointment(t *testing.T) {
	assert.True(t, ViewAppointment(owningPatient, appt).Allowed)
	assert.True(t, ViewAppointment(assignedDoctor, appt).Allowed)
	assert.False(t, ViewAppointment(otherPatient, appt).Allowed)
	assert.False(t, ViewAppointment(otherDoctor, appt).Allowed)
}

func TestViewAppointmentDoctorWithoutProfile(t *testing.T) {
	// A doctor-role user with no profile row can never be the assigned doctor,
	// even against a zero-valued appointment.
	noProfile := Actor{UserID: 7, Role: models.RoleDoctor, DoctorID: 0}
	zeroAppt := models.Appointment{PatientID: 1, DoctorID: 0}
	assert.False(t, ViewAppointment(noProfile, zeroAppt).Allowed)
}

func TestTransitionAppointment(t *testing.T) {
	tests := []struct {
		name    string
		actor   Actor
		target  string
		allowed bool
	}{
		{"assigned doctor confirms", assignedDoctor, models.StatusConfirmed, true},
		{"assigned doctor completes", assignedDoctor, models.StatusCompleted, true},
		{"assigned doctor cancels", assignedDoctor, models.StatusCancelled, true},
		{"owning patient cancels", owningPatient, models.StatusCancelled, true},
		{"owning patient cannot confirm", owningPatient, models.StatusConfirmed, false},
		{"owning patient cannot complete", owningPatient, models.StatusCompleted, false},
		{"other patient denied", otherPatient, models.StatusCancelled, false},
		{"other doctor denied", otherDoctor, models.StatusConfirmed, false},
		{"unknown target denied", assignedDoctor, "archived", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := TransitionAppointment(tt.actor, appt, tt.target)
			assert.Equal(t, tt.allowed, decision.Allowed)
			if !tt.allowed {
				assert.NotEmpty(t, decision.Reason)
			}
		})
	}
}

func TestMedicalHistoryAccess(t *testing.T) {
	assert.True(t, ViewMedicalHistory(owningPatient, 1).Allowed)
	assert.False(t, ViewMedicalHistory(otherPatient, 1).Allowed)
	assert.True(t, ViewMedicalHistory(otherDoctor, 1).Allowed, "any doctor may read a history")

	assert.True(t, UpdateMedicalHistory(owningPatient, 1).Allowed)
	assert.False(t, UpdateMedicalHistory(otherPatient, 1).Allowed)
	assert.True(t, UpdateMedicalHistory(assignedDoctor, 1).Allowed)
}
