package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChronicCondition is one long-running condition on a medical history.
type ChronicCondition struct {
	Condition   string   `json:"condition"`
	Medications []string `json:"medications,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// MedicalHistory holds per-patient clinical background. One row per patient.
type MedicalHistory struct {
	ID                int                `json:"id" db:"id"`
	PatientID         int                `json:"patient_id" db:"patient_id"`
	Allergies         []string           `json:"allergies" db:"allergies"`
	ChronicConditions []ChronicCondition `json:"chronic_conditions" db:"chronic_conditions"`
	BloodType         string             `json:"blood_type,omitempty" db:"blood_type"`
	Notes             string             `json:"notes,omitempty" db:"notes"`
	UpdatedAt         time.Time          `json:"updated_at" db:"updated_at"`
}

var bloodTypes = map[string]bool{
	"A+": true, "A-": true,
	"B+": true, "B-": true,
	"AB+": true, "AB-": true,
	"O+": true, "O-": true,
}

// ValidBloodType accepts the empty string (unknown) or an ABO/Rh label.
func ValidBloodType(bt string) bool {
	return bt == "" || bloodTypes[bt]
}

func MarshalStringList(items []string) string {
	if items == nil {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func UnmarshalStringList(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal string list: %w", err)
	}
	return items, nil
}

func MarshalConditions(items []ChronicCondition) string {
	if items == nil {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func UnmarshalConditions(data []byte) ([]ChronicCondition, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var items []ChronicCondition
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal chronic conditions: %w", err)
	}
	return items, nil
}
