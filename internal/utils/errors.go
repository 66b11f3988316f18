package utils

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// APIError represents a structured API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string, status int) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// WithMessage returns a copy of e carrying a different message
func (e *APIError) WithMessage(message string) *APIError {
	return &APIError{Code: e.Code, Message: message, Status: e.Status, Details: e.Details}
}

// Common API Errors
var (
	ErrInternalServer  = NewAPIError("INTERNAL_SERVER_ERROR", "An unexpected error occurred", fiber.StatusInternalServerError)
	ErrBadRequest      = NewAPIError("BAD_REQUEST", "Invalid request", fiber.StatusBadRequest)
	ErrUnauthorized    = NewAPIError("UNAUTHORIZED", "Authentication required", fiber.StatusUnauthorized)
	ErrForbidden       = NewAPIError("FORBIDDEN", "You do not have permission to access this resource", fiber.StatusForbidden)
	ErrNotFound        = NewAPIError("NOT_FOUND", "Resource not found", fiber.StatusNotFound)
	ErrConflict        = NewAPIError("CONFLICT", "Resource already exists", fiber.StatusConflict)
	ErrTooManyRequests = NewAPIError("TOO_MANY_REQUESTS", "Too many requests, please try again later.", fiber.StatusTooManyRequests)
)

// ErrorHandler is the fiber error boundary. APIErrors are rendered as-is, fiber errors keep their
// status, and everything else becomes a generic 500 so internals never reach the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return ErrorResponse(c, apiErr)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return ErrorResponse(c, NewAPIError("HTTP_ERROR", fe.Message, fe.Code))
	}

	slog.Error("Unhandled request error", "method", c.Method(), "path", c.Path(), "error", err)
	return ErrorResponse(c, ErrInternalServer)
}
