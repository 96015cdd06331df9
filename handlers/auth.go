package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/medcita/clinic-backend/apperr"
	"github.com/medcita/clinic-backend/database"
	"github.com/medcita/clinic-backend/middleware"
	"github.com/medcita/clinic-backend/models"
)

// refreshTokenTTL is the lifetime of opaque refresh tokens.
const refreshTokenTTL = 30 * 24 * time.Hour

type registerRequest struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Role     string         `json:"role"`
	Doctor   *doctorRequest `json:"doctor,omitempty"`
}

const insertUserSQL = `INSERT INTO users (name, email, password, role)
	 VALUES ($1, $2, $3, $4)
	 RETURNING id, created_at`

const insertRefreshTokenSQL = `INSERT INTO refresh_tokens (user_id, token, expires_at)
	 VALUES ($1, $2, $3)`

// rotateRefreshTokenSQL revokes the old token and issues the new one in a
// single statement, so a mid-rotation failure cannot leave the user with
// neither token.
const rotateRefreshTokenSQL = `WITH revoked AS (
	 UPDATE refresh_tokens SET revoked = true WHERE id = $1
	 )
	 INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES ($2, $3, $4)`

// Register creates a user account. A doctor registration may carry its
// professional profile inline; doctors who skip it attach one later through
// the doctors endpoint.
func Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		return apperr.Validation("name, email and password are required")
	}
	if !models.ValidRole(req.Role) {
		return apperr.Validation("role must be patient or doctor")
	}
	if req.Doctor != nil {
		if req.Role != models.RoleDoctor {
			return apperr.Validation("only doctor registrations may include a doctor profile")
		}
		if err := validateDoctorRequest(*req.Doctor); err != nil {
			return err
		}
	}

	var count int
	err := database.GetDB().QueryRow(c.Context(),
		"SELECT COUNT(*) FROM users WHERE email = $1", req.Email).Scan(&count)
	if err != nil {
		return apperr.Internal("failed to check email", err)
	}
	if count > 0 {
		return apperr.Conflict("email is already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal("failed to hash password", err)
	}

	user := models.User{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	}
	err = database.GetDB().QueryRow(c.Context(), insertUserSQL,
		user.Name, user.Email, string(hashed), user.Role,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.Conflict("email is already registered")
		}
		return apperr.Internal("failed to create user", err)
	}

	response := fiber.Map{
		"message": "user registered",
		"user": models.UserResponse{
			ID:        user.ID,
			Name:      user.Name,
			Email:     user.Email,
			Role:      user.Role,
			CreatedAt: user.CreatedAt,
		},
	}

	if req.Doctor != nil {
		doctor := models.Doctor{
			UserID:          user.ID,
			Specialty:       req.Doctor.Specialty,
			License:         req.Doctor.License,
			ExperienceYears: req.Doctor.ExperienceYears,
			ConsultationFee: req.Doctor.ConsultationFee,
			Schedule:        req.Doctor.Schedule,
		}
		err = database.GetDB().QueryRow(c.Context(), insertDoctorSQL,
			doctor.UserID, doctor.Specialty, doctor.License, doctor.ExperienceYears,
			doctor.ConsultationFee, models.MarshalSchedule(doctor.Schedule),
		).Scan(&doctor.ID, &doctor.CreatedAt, &doctor.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return apperr.Conflict("license is already registered")
			}
			return apperr.Internal("failed to create doctor profile", err)
		}
		response["doctor"] = doctor
	}

	middleware.LogEvent(models.LogLevelSuccess, "user registered",
		middleware.Identity{UserID: user.ID, Role: user.Role}, map[string]interface{}{
			"email": user.Email,
		})

	return c.Status(fiber.StatusCreated).JSON(response)
}

// Login verifies credentials, enforces MFA when enabled, and issues an access
// token plus an opaque refresh token.
func Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return apperr.Validation("email and password are required")
	}

	var user models.User
	err := database.GetDB().QueryRow(c.Context(),
		"SELECT id, name, email, password, role, mfa_enabled, mfa_secret, created_at FROM users WHERE email = $1",
		req.Email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Role,
		&user.MFAEnabled, &user.MFASecret, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Authentication("invalid credentials")
	}
	if err != nil {
		return apperr.Internal("failed to load user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return apperr.Authentication("invalid credentials")
	}

	if user.MFAEnabled {
		if req.MFACode == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":        true,
				"requires_mfa": true,
				"message":      "mfa code required",
			})
		}
		if !totp.Validate(req.MFACode, user.MFASecret) {
			return apperr.Authentication("invalid mfa code")
		}
	}

	accessToken, err := middleware.GenerateJWT(user.ID, user.Role)
	if err != nil {
		return apperr.Internal("failed to issue access token", err)
	}

	refreshToken := uuid.NewString()
	_, err = database.GetDB().Exec(c.Context(), insertRefreshTokenSQL,
		user.ID, refreshToken, time.Now().Add(refreshTokenTTL))
	if err != nil {
		return apperr.Internal("failed to issue refresh token", err)
	}

	middleware.LogEvent(models.LogLevelSuccess, "user logged in",
		middleware.Identity{UserID: user.ID, Role: user.Role}, nil)

	return c.JSON(models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(middleware.AccessTokenTTL.Seconds()),
		User: models.UserResponse{
			ID:        user.ID,
			Name:      user.Name,
			Email:     user.Email,
			Role:      user.Role,
			CreatedAt: user.CreatedAt,
		},
	})
}

// Refresh rotates a refresh token and issues a new access token.
func Refresh(c *fiber.Ctx) error {
	var req models.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.RefreshToken == "" {
		return apperr.Validation("refresh_token is required")
	}

	var stored models.RefreshToken
	err := database.GetDB().QueryRow(c.Context(),
		"SELECT id, user_id, expires_at, revoked FROM refresh_tokens WHERE token = $1",
		req.RefreshToken,
	).Scan(&stored.ID, &stored.UserID, &stored.ExpiresAt, &stored.Revoked)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Authentication("invalid refresh token")
	}
	if err != nil {
		return apperr.Internal("failed to load refresh token", err)
	}

	if stored.Revoked || time.Now().After(stored.ExpiresAt) {
		return apperr.Authentication("refresh token expired or revoked")
	}

	var role string
	err = database.GetDB().QueryRow(c.Context(),
		"SELECT role FROM users WHERE id = $1", stored.UserID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Authentication("invalid refresh token")
	}
	if err != nil {
		return apperr.Internal("failed to load user", err)
	}

	newToken := uuid.NewString()
	if _, err := database.GetDB().Exec(c.Context(), rotateRefreshTokenSQL,
		stored.ID, stored.UserID, newToken, time.Now().Add(refreshTokenTTL)); err != nil {
		return apperr.Internal("failed to rotate refresh token", err)
	}

	accessToken, err := middleware.GenerateJWT(stored.UserID, role)
	if err != nil {
		return apperr.Internal("failed to issue access token", err)
	}

	return c.JSON(models.RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: newToken,
		ExpiresIn:    int(middleware.AccessTokenTTL.Seconds()),
	})
}

// Logout revokes the caller's refresh token. Revoking an unknown or already
// revoked token is not an error.
func Logout(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperr.Authentication("authorization token required")
	}

	var req models.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.RefreshToken == "" {
		return apperr.Validation("refresh_token is required")
	}

	_, err := database.GetDB().Exec(c.Context(),
		"UPDATE refresh_tokens SET revoked = true WHERE token = $1 AND user_id = $2",
		req.RefreshToken, identity.UserID)
	if err != nil {
		return apperr.Internal("failed to revoke refresh token", err)
	}

	return c.JSON(fiber.Map{"message": "logged out"})
}
