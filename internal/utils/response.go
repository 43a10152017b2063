package utils

import "github.com/gofiber/fiber/v2"

// APIResponse describes the common structure for API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
}

// Machine-readable error codes attached to failure responses.
const (
	CodeValidation   = "validation_error"
	CodeUnauthorized = "authentication_error"
	CodeForbidden    = "authorization_error"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeUnavailable  = "storage_unavailable"
	CodeInternal     = "internal_error"
)

// SendSuccess sends a successful JSON response with a message.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus sends a success payload using the provided HTTP status code.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if message == "" {
		message = "success"
	}
	if status == 0 {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// SendError sends an error JSON response with the given status code. The error code
// is derived from the status.
func SendError(c *fiber.Ctx, status int, message string) error {
	return SendErrorWithCode(c, status, codeForStatus(status), message)
}

// SendErrorWithCode sends an error JSON response carrying an explicit error code.
func SendErrorWithCode(c *fiber.Ctx, status int, code, message string) error {
	if message == "" {
		message = "error"
	}

	return c.Status(status).JSON(APIResponse{
		Success: false,
		Message: message,
		Code:    code,
	})
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return CodeValidation
	case fiber.StatusUnauthorized:
		return CodeUnauthorized
	case fiber.StatusForbidden:
		return CodeForbidden
	case fiber.StatusNotFound:
		return CodeNotFound
	case fiber.StatusConflict:
		return CodeConflict
	case fiber.StatusServiceUnavailable:
		return CodeUnavailable
	default:
		return CodeInternal
	}
}
