package models

import (
	"time"
)

// RequestLog is one audit row written by the logging middleware.
type RequestLog struct {
	ID           int       `json:"id" db:"id"`
	Method       string    `json:"method" db:"method"`
	Path         string    `json:"path" db:"path"`
	StatusCode   int       `json:"status_code" db:"status_code"`
	ResponseTime *int      `json:"response_time,omitempty" db:"response_time"`
	IP           string    `json:"ip" db:"ip"`
	UserAgent    *string   `json:"user_agent,omitempty" db:"user_agent"`
	Body         *string   `json:"body,omitempty" db:"body"`
	UserID       *int      `json:"user_id,omitempty" db:"user_id"`
	Role         *string   `json:"role,omitempty" db:"role"`
	LogLevel     string    `json:"log_level" db:"log_level"`
	Environment  string    `json:"environment" db:"environment"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Log levels used by the audit trail.
const (
	LogLevelInfo    = "info"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
	LogLevelSuccess = "success"
)

// Environments.
const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
	EnvironmentTesting     = "testing"
)
