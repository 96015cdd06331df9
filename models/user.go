package models

import (
	"time"
)

// Roles a user can register with.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

// ValidRole reports whether role is one of the registerable roles.
func ValidRole(role string) bool {
	return role == RolePatient || role == RoleDoctor
}

// User represents a row in the users table.
type User struct {
	ID         int       `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	Password   string    `json:"password,omitempty" db:"password"`
	Role       string    `json:"role" db:"role"`
	MFAEnabled bool      `json:"mfa_enabled" db:"mfa_enabled"`
	MFASecret  string    `json:"-" db:"mfa_secret"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// UserResponse is the user shape returned by the API, without credentials.
type UserResponse struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfa_code,omitempty"`
}

type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // seconds
	User         UserResponse `json:"user"`
}

// RefreshToken is a server-side opaque token exchanged for new access tokens.
type RefreshToken struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Revoked   bool      `json:"revoked" db:"revoked"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type MFASetupRequest struct {
	Password string `json:"password"`
}

type MFASetupResponse struct {
	Secret    string `json:"secret"`
	QRCodeURL string `json:"qr_code_url"`
}

type MFAVerifyRequest struct {
	Code string `json:"code"`
}

type MFADisableRequest struct {
	Password string `json:"password"`
	Code     string `json:"code"`
}
