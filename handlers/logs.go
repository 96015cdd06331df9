package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/medcita/clinic-backend/apperr"
	"github.com/medcita/clinic-backend/database"
	"github.com/medcita/clinic-backend/middleware"
	"github.com/medcita/clinic-backend/models"
)

const recentLogsSQL = `SELECT id, method, path, status_code, response_time, ip, log_level, environment, created_at
	 FROM request_logs
	 WHERE user_id = $1
	 ORDER BY created_at DESC
	 LIMIT 50`

// MyLogs returns the caller's recent audit trail. Logs are self-scoped; no
// user can read another user's activity.
func MyLogs(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperr.Authentication("authorization token required")
	}

	rows, err := database.GetDB().Query(c.Context(), recentLogsSQL, identity.UserID)
	if err != nil {
		return apperr.Internal("failed to load logs", err)
	}
	defer rows.Close()

	logs := []models.RequestLog{}
	for rows.Next() {
		var entry models.RequestLog
		err := rows.Scan(&entry.ID, &entry.Method, &entry.Path, &entry.StatusCode,
			&entry.ResponseTime, &entry.IP, &entry.LogLevel, &entry.Environment, &entry.CreatedAt)
		if err != nil {
			return apperr.Internal("failed to load logs", err)
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return apperr.Internal("failed to load logs", err)
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"total": len(logs),
	})
}
