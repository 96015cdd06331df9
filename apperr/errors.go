package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Kind classifies an error into the response categories the API uses.
type Kind int

const (
	KindValidation Kind = iota
	KindConflict
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindInternal
)

// Error is the single domain error type. Handlers return it and the fiber
// ErrorHandler translates it into a status code and JSON body.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind to its HTTP status. Conflicts map to 400,
// matching the reference API behavior for "slot unavailable" and duplicate
// unique fields.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation, KindConflict:
		return fiber.StatusBadRequest
	case KindAuthentication:
		return fiber.StatusUnauthorized
	case KindAuthorization:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Authentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// ErrorHandler renders any error returned by a handler or middleware.
// Internal errors are logged and hidden behind a generic message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *Error
	if errors.As(err, &appErr) {
		message := appErr.Message
		if appErr.Kind == KindInternal {
			log.Error().Err(appErr.Err).Str("path", c.Path()).Msg(appErr.Message)
			message = "unexpected server error"
		}
		return c.Status(appErr.StatusCode()).JSON(fiber.Map{
			"error":   true,
			"message": message,
		})
	}

	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
