package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/medcita/clinic-backend/apperr"
	"github.com/medcita/clinic-backend/database"
	"github.com/medcita/clinic-backend/middleware"
	"github.com/medcita/clinic-backend/models"
)

// Me returns the authenticated user's profile.
func Me(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperr.Authentication("authorization token required")
	}

	var user models.UserResponse
	err := database.GetDB().QueryRow(c.Context(),
		"SELECT id, name, email, role, created_at FROM users WHERE id = $1", identity.UserID,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("user not found")
	}
	if err != nil {
		return apperr.Internal("failed to load user", err)
	}

	return c.JSON(fiber.Map{"user": user})
}
