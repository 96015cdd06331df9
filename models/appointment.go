package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Appointment status lifecycle: pending -> {confirmed, cancelled},
// confirmed -> {completed, cancelled}; completed and cancelled are terminal.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var validStatuses = map[string]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusCompleted: true,
	StatusCancelled: true,
}

var statusTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusCompleted: true,
		StatusCancelled: true,
	},
}

// ValidStatus reports whether s is a known status label.
func ValidStatus(s string) bool {
	return validStatuses[s]
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to string) bool {
	return statusTransitions[from][to]
}

// Terminal reports whether a status admits no further transitions.
func Terminal(status string) bool {
	return len(statusTransitions[status]) == 0
}

// Appointment visit types.
const (
	TypeFirstVisit   = "first-visit"
	TypeFollowUp     = "follow-up"
	TypeConsultation = "consultation"
	TypeEmergency    = "emergency"
)

var validTypes = map[string]bool{
	TypeFirstVisit:   true,
	TypeFollowUp:     true,
	TypeConsultation: true,
	TypeEmergency:    true,
}

func ValidType(t string) bool {
	return validTypes[t]
}

// PrescriptionItem is one medicine line attached on completion.
type PrescriptionItem struct {
	Medicine  string `json:"medicine"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// Appointment represents a row in the appointments ledger. Rows are never
// deleted, only status-transitioned.
type Appointment struct {
	ID           int                `json:"id" db:"id"`
	PatientID    int                `json:"patient_id" db:"patient_id"`
	DoctorID     int                `json:"doctor_id" db:"doctor_id"`
	Date         time.Time          `json:"date" db:"date"`
	Time         string             `json:"time" db:"time"`
	Type         string             `json:"type" db:"type"`
	Symptoms     string             `json:"symptoms" db:"symptoms"`
	Diagnosis    string             `json:"diagnosis,omitempty" db:"diagnosis"`
	Prescription []PrescriptionItem `json:"prescription,omitempty" db:"prescription"`
	Notes        string             `json:"notes,omitempty" db:"notes"`
	Status       string             `json:"status" db:"status"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" db:"updated_at"`
}

// MarshalPrescription encodes the prescription list for the jsonb column.
func MarshalPrescription(items []PrescriptionItem) string {
	if items == nil {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// UnmarshalPrescription decodes the jsonb column; empty input yields nil.
func UnmarshalPrescription(data []byte) ([]PrescriptionItem, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var items []PrescriptionItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal prescription: %w", err)
	}
	return items, nil
}
