package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ScheduleEntry is one weekly availability window on a doctor profile.
type ScheduleEntry struct {
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Doctor extends a doctor-role user with professional details and the weekly
// availability template. One profile per user.
type Doctor struct {
	ID              int             `json:"id" db:"id"`
	UserID          int             `json:"user_id" db:"user_id"`
	Specialty       string          `json:"specialty" db:"specialty"`
	License         string          `json:"license" db:"license"`
	ExperienceYears int             `json:"experience_years" db:"experience_years"`
	ConsultationFee float64         `json:"consultation_fee" db:"consultation_fee"`
	Schedule        []ScheduleEntry `json:"schedule" db:"schedule"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// DoctorResponse joins the profile with the owning user's directory fields.
type DoctorResponse struct {
	Doctor
	Name  string `json:"name"`
	Email string `json:"email"`
}

var weekdays = map[string]bool{
	"Monday":    true,
	"Tuesday":   true,
	"Wednesday": true,
	"Thursday":  true,
	"Friday":    true,
	"Saturday":  true,
	"Sunday":    true,
}

// ValidateSchedule checks every entry of a weekly template.
func ValidateSchedule(entries []ScheduleEntry) error {
	for _, e := range entries {
		if !weekdays[e.Day] {
			return fmt.Errorf("invalid weekday %q", e.Day)
		}
		if !validClock(e.StartTime) || !validClock(e.EndTime) {
			return fmt.Errorf("invalid time window %q-%q", e.StartTime, e.EndTime)
		}
		if e.StartTime >= e.EndTime {
			return fmt.Errorf("start time %q is not before end time %q", e.StartTime, e.EndTime)
		}
	}
	return nil
}

// validClock accepts "HH:MM" labels; lexicographic comparison is then safe.
func validClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	hh := s[:2]
	mm := s[3:]
	if hh < "00" || hh > "23" {
		return false
	}
	if mm < "00" || mm > "59" {
		return false
	}
	for i, c := range s {
		if i == 2 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// MarshalSchedule encodes the weekly template for the jsonb column.
func MarshalSchedule(entries []ScheduleEntry) string {
	if entries == nil {
		return "[]"
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// UnmarshalSchedule decodes the jsonb column; nil or empty input yields nil.
func UnmarshalSchedule(data []byte) ([]ScheduleEntry, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var entries []ScheduleEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal schedule: %w", err)
	}
	return entries, nil
}
