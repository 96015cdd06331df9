// Package policy centralizes the authorization rules for appointment access.
// Decisions are pure functions over the caller, the record, and the requested
// action, so they are testable without transport or storage.
package policy

import (
	"github.com/medcita/clinic-backend/models"
)

// Actor is the resolved, request-scoped identity of the caller. DoctorID is
// the caller's doctor profile ID, zero when the caller has none.
type Actor struct {
	UserID   int
	Role     string
	DoctorID int
}

// Decision is an explicit allow/deny with the reason for the denial.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

func isOwningPatient(actor Actor, appt models.Appointment) bool {
	return actor.Role == models.RolePatient && actor.UserID == appt.PatientID
}

func isAssignedDoctor(actor Actor, appt models.Appointment) bool {
	return actor.Role == models.RoleDoctor && actor.DoctorID != 0 && actor.DoctorID == appt.DoctorID
}

// ViewAppointment allows only the owning patient or the assigned doctor to
// read a single appointment.
func ViewAppointment(actor Actor, appt models.Appointment) Decision {
	if isOwningPatient(actor, appt) || isAssignedDoctor(actor, appt) {
		return allow()
	}
	return deny("only the owning patient or the assigned doctor may view this appointment")
}

// TransitionAppointment decides whether the actor may trigger the edge to
// target. It covers party membership and who-may-trigger-which-edge rules;
// state-machine legality (including terminal states) is checked separately by
// models.CanTransition, so an illegal edge by an authorized party surfaces as
// a conflict rather than a permission error.
func TransitionAppointment(actor Actor, appt models.Appointment, target string) Decision {
	owning := isOwningPatient(actor, appt)
	assigned := isAssignedDoctor(actor, appt)
	if !owning && !assigned {
		return deny("only the owning patient or the assigned doctor may change this appointment")
	}

	switch target {
	case models.StatusConfirmed:
		if !assigned {
			return deny("only the assigned doctor may confirm an appointment")
		}
	case models.StatusCompleted:
		if !assigned {
			return deny("only the assigned doctor may complete an appointment")
		}
	case models.StatusCancelled:
		// Both parties may cancel.
	default:
		return deny("unknown target status")
	}
	return allow()
}

// ViewMedicalHistory allows the owning patient and any doctor.
func ViewMedicalHistory(actor Actor, patientID int) Decision {
	if actor.Role == models.RoleDoctor {
		return allow()
	}
	if actor.Role == models.RolePatient && actor.UserID == patientID {
		return allow()
	}
	return deny("only the patient or a doctor may access this medical history")
}

// UpdateMedicalHistory mirrors ViewMedicalHistory: the owning patient and any
// doctor may write.
func UpdateMedicalHistory(actor Actor, patientID int) Decision {
	return ViewMedicalHistory(actor, patientID)
}
