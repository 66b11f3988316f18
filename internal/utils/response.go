package utils

import (
	"github.com/gofiber/fiber/v2"
)

// SuccessResponse sends a success JSON response
func SuccessResponse(c *fiber.Ctx, data any, message string, code ...int) error {
	statusCode := fiber.StatusOK
	if len(code) > 0 {
		statusCode = code[0]
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"success": true,
		"data":    data,
		"message": message,
	})
}

// ErrorResponse sends an error JSON response built from an APIError.
// The body is {"success": false, "error": {"code": ..., "message": ...}}. An explicit status code
// overrides apiErr.Status without mutating the shared error value.
func ErrorResponse(c *fiber.Ctx, apiErr *APIError, code ...int) error {
	if apiErr == nil {
		apiErr = ErrInternalServer
	}

	statusCode := apiErr.Status
	if len(code) > 0 {
		statusCode = code[0]
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"success": false,
		"error":   apiErr,
	})
}

// EmptyResponse sends a status code with an empty body.
// SendStatus would fill an empty body with the status text, so the body is set explicitly.
func EmptyResponse(c *fiber.Ctx, code int) error {
	return c.Status(code).Send(nil)
}
