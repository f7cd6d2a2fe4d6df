package httpx

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sethshivam11/social-media-backend/internal/apperr"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func requestID(c *fiber.Ctx) string {
	if v := c.Locals("requestid"); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func Error(c *fiber.Ctx, status int, code string, message string) error {
	if message == "" {
		message = "Request failed"
	}
	return c.Status(status).JSON(ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestID(c),
	})
}

func BadRequest(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusBadRequest, code, message)
}

func Unauthorized(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusUnauthorized, code, message)
}

func Forbidden(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusForbidden, code, message)
}

func NotFound(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusNotFound, code, message)
}

func Conflict(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusConflict, code, message)
}

func Internal(c *fiber.Ctx, code string) error {
	return Error(c, fiber.StatusInternalServerError, code, "Internal server error")
}

// FromError maps a service error onto the HTTP surface using the apperr
// sentinels. Anything unrecognized is a 500 carrying fallbackCode; sentinel
// errors expose their message since services phrase those for clients.
func FromError(c *fiber.Ctx, err error, fallbackCode string) error {
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		return Unauthorized(c, "unauthorized", err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		return Forbidden(c, "forbidden", err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		return NotFound(c, "not_found", err.Error())
	case errors.Is(err, apperr.ErrConflict):
		return Conflict(c, "conflict", err.Error())
	case errors.Is(err, apperr.ErrUploadFailed):
		return Error(c, fiber.StatusBadGateway, "upload_failed", "Upload failed")
	default:
		return Internal(c, fallbackCode)
	}
}

func LocalUint(c *fiber.Ctx, key string) (uint, error) {
	v := c.Locals(key)
	if v == nil {
		return 0, fmt.Errorf("missing local %s", key)
	}
	u, ok := v.(uint)
	if !ok {
		return 0, fmt.Errorf("invalid local %s", key)
	}
	return u, nil
}
