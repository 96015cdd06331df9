package middleware

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/medcita/clinic-backend/database"
	"github.com/medcita/clinic-backend/models"
)

// RequestLogger persists an audit row for every request. Writes happen off
// the request path; a failed write never fails the request.
//
// Handler errors are rendered here rather than propagated: the app-level
// ErrorHandler would only write the 4xx/5xx response after this middleware
// has already read the status, so the audit row would carry a stale 200.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if handlerErr := c.App().Config().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		responseTime := int(time.Since(start).Milliseconds())

		dispatchAudit(buildLogEntry(c, responseTime))
		return nil
	}
}

func buildLogEntry(c *fiber.Ctx, responseTime int) models.RequestLog {
	entry := models.RequestLog{
		Method:       c.Method(),
		Path:         c.Path(),
		StatusCode:   c.Response().StatusCode(),
		ResponseTime: &responseTime,
		IP:           clientIP(c),
		LogLevel:     levelForStatus(c.Response().StatusCode()),
		Environment:  environment(),
	}

	if identity, ok := IdentityFrom(c); ok {
		userID := identity.UserID
		role := identity.Role
		entry.UserID = &userID
		entry.Role = &role
	}

	if ua := c.Get("User-Agent"); ua != "" {
		entry.UserAgent = &ua
	}

	switch c.Method() {
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch:
		if body := string(c.Body()); body != "" {
			filtered := filterSensitiveData(body)
			entry.Body = &filtered
		}
	}

	return entry
}

func clientIP(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return c.IP()
}

var sensitiveFields = []string{"password", "mfa_code", "code", "secret", "token", "refresh_token", "access_token"}

const maxLoggedBody = 1000

// filterSensitiveData redacts credential fields before the body is stored.
func filterSensitiveData(body string) string {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		if len(body) > maxLoggedBody {
			return body[:maxLoggedBody] + "...[truncated]"
		}
		return body
	}

	for _, field := range sensitiveFields {
		if _, exists := data[field]; exists {
			data[field] = "[FILTERED]"
		}
	}

	filtered, _ := json.Marshal(data)
	out := string(filtered)
	if len(out) > maxLoggedBody {
		return out[:maxLoggedBody] + "...[truncated]"
	}
	return out
}

func levelForStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return models.LogLevelSuccess
	case statusCode >= 500:
		return models.LogLevelError
	case statusCode >= 400:
		return models.LogLevelWarning
	default:
		return models.LogLevelInfo
	}
}

func environment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return models.EnvironmentDevelopment
}

const insertLogSQL = `INSERT INTO request_logs (method, path, status_code, response_time, ip, user_agent, body, user_id, role, log_level, environment, created_at)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// auditSink, when set, receives entries instead of the database writer.
var auditSink func(models.RequestLog)

// SetAuditSink redirects audit entries; nil restores the asynchronous
// database writer. Intended for tests.
func SetAuditSink(fn func(models.RequestLog)) {
	auditSink = fn
}

// dispatchAudit resolves the querier before spawning the write goroutine, so
// a write in flight never picks up a database swapped in afterwards.
func dispatchAudit(entry models.RequestLog) {
	if auditSink != nil {
		auditSink(entry)
		return
	}
	db := database.GetDB()
	go saveLog(db, entry)
}

func saveLog(db database.Querier, entry models.RequestLog) {
	if db == nil {
		return
	}

	_, err := db.Exec(context.Background(), insertLogSQL,
		entry.Method,
		entry.Path,
		entry.StatusCode,
		entry.ResponseTime,
		entry.IP,
		entry.UserAgent,
		entry.Body,
		entry.UserID,
		entry.Role,
		entry.LogLevel,
		entry.Environment,
		time.Now(),
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to persist request log")
	}
}

// LogEvent records a domain event (booking created, status changed) on the
// audit trail, keyed to the acting identity.
func LogEvent(level, message string, identity Identity, data map[string]interface{}) {
	entry := models.RequestLog{
		Method:      "EVENT",
		Path:        "/event",
		StatusCode:  fiber.StatusOK,
		IP:          "127.0.0.1",
		LogLevel:    level,
		Environment: environment(),
	}

	if identity.UserID != 0 {
		userID := identity.UserID
		role := identity.Role
		entry.UserID = &userID
		entry.Role = &role
	}

	if data == nil {
		data = map[string]interface{}{}
	}
	data["message"] = message
	if body, err := json.Marshal(data); err == nil {
		bodyStr := string(body)
		entry.Body = &bodyStr
	}

	dispatchAudit(entry)
}
