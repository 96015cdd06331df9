package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/medcita/clinic-backend/apperr"
	"github.com/medcita/clinic-backend/database"
	"github.com/medcita/clinic-backend/middleware"
)

const totpIssuer = "clinic-backend"

// SetupMFA generates a TOTP secret for the caller after a password re-check.
// The secret stays pending until VerifyMFA confirms a valid code.
func SetupMFA(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperr.Authentication("authorization token required")
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Password == "" {
		return apperr.Validation("password is required")
	}

	var email, hashed string
	err := database.GetDB().QueryRow(c.Context(),
		"SELECT email, password FROM users WHERE id = $1", identity.UserID).Scan(&email, &hashed)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("user not found")
	}
	if err != nil {
		return apperr.Internal("failed to load user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hashed), []byte(req.Password)) != nil {
		return apperr.Authentication("invalid password")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: email,
	})
	if err != nil {
		return apperr.Internal("failed to generate mfa secret", err)
	}

	_, err = database.GetDB().Exec(c.Context(),
		"UPDATE users SET mfa_secret = $1, mfa_enabled = false, updated_at = now() WHERE id = $2",
		key.Secret(), identity.UserID)
	if err != nil {
		return apperr.Internal("failed to store mfa secret", err)
	}

	return c.JSON(fiber.Map{
		"secret":      key.Secret(),
		"qr_code_url": key.URL(),
	})
}

// VerifyMFA confirms the pending secret with a live code and enables MFA.
func VerifyMFA(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperr.Authentication("authorization token required")
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Code == "" {
		return apperr.Validation("code is required")
	}

	var secret string
	err := database.GetDB().QueryRow(c.Context(),
		"SELECT mfa_secret FROM users WHERE id = $1", identity.UserID).Scan(&secret)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("user not found")
	}
	if err != nil {
		return apperr.Internal("failed to load user", err)
	}
	if secret == "" {
		return apperr.Validation("mfa setup has not been started")
	}

	if !totp.Validate(req.Code, secret) {
		return apperr.Authentication("invalid mfa code")
	}

	_, err = database.GetDB().Exec(c.Context(),
		"UPDATE users SET mfa_enabled = true, updated_at = now() WHERE id = $1", identity.UserID)
	if err != nil {
		return apperr.Internal("failed to enable mfa", err)
	}

	return c.JSON(fiber.Map{"message": "mfa enabled"})
}

// DisableMFA turns MFA off after verifying both the password and a live code.
func DisableMFA(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperr.Authentication("authorization token required")
	}

	var req struct {
		Password string `json:"password"`
		Code     string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Password == "" || req.Code == "" {
		return apperr.Validation("password and code are required")
	}

	var (
		hashed  string
		secret  string
		enabled bool
	)
	err := database.GetDB().QueryRow(c.Context(),
		"SELECT password, mfa_secret, mfa_enabled FROM users WHERE id = $1", identity.UserID,
	).Scan(&hashed, &secret, &enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("user not found")
	}
	if err != nil {
		return apperr.Internal("failed to load user", err)
	}

	if !enabled {
		return apperr.Validation("mfa is not enabled")
	}
	if bcrypt.CompareHashAndPassword([]byte(hashed), []byte(req.Password)) != nil {
		return apperr.Authentication("invalid password")
	}
	if !totp.Validate(req.Code, secret) {
		return apperr.Authentication("invalid mfa code")
	}

	_, err = database.GetDB().Exec(c.Context(),
		"UPDATE users SET mfa_enabled = false, mfa_secret = '', updated_at = now() WHERE id = $1",
		identity.UserID)
	if err != nil {
		return apperr.Internal("failed to disable mfa", err)
	}

	return c.JSON(fiber.Map{"message": "mfa disabled"})
}
