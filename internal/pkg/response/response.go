package response

import (
	"github.com/gofiber/fiber/v2"
)

// SuccessBody is the standardized success JSON shape.
type SuccessBody struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata,omitempty"`
}

// ErrorBody is the standardized error JSON shape.
type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

// ErrorDetail is the nested error object. Code is the machine-readable kind
// (e.g. "insufficient_availability") clients branch on; Message is for people.
type ErrorDetail struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Code       string      `json:"code,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

func success(c *fiber.Ctx, status int, message string, data interface{}, metadata interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return c.Status(status).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// Success sends a 200 OK response with the standard success format.
func Success(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return success(c, fiber.StatusOK, message, data, metadata)
}

// SuccessCreated sends a 201 Created response with the standard success format.
func SuccessCreated(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return success(c, fiber.StatusCreated, message, data, metadata)
}

// List sends a 200 with items as data and their count in metadata.
// A nil slice is sent as [] so clients never see null.
func List[T any](c *fiber.Ctx, message string, items []T) error {
	if items == nil {
		items = []T{}
	}
	return success(c, fiber.StatusOK, message, items, fiber.Map{"count": len(items)})
}

// Error sends a response with the standard error format.
func Error(c *fiber.Ctx, message string, statusCode int, details interface{}) error {
	return Coded(c, message, statusCode, "", details)
}

// Coded is Error with a machine-readable error code.
func Coded(c *fiber.Ctx, message string, statusCode int, code string, details interface{}) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	return c.Status(statusCode).JSON(ErrorBody{
		Status: statusError,
		Error: ErrorDetail{
			Message:    message,
			StatusCode: statusCode,
			Code:       code,
			Details:    details,
		},
	})
}

// Unauthorized sends 401 with the same shape as other errors.
func Unauthorized(c *fiber.Ctx, message string) error {
	return Coded(c, message, fiber.StatusUnauthorized, "unauthorized", nil)
}

// Forbidden sends 403 for role checks that run before any domain code.
func Forbidden(c *fiber.Ctx, message string) error {
	return Coded(c, message, fiber.StatusForbidden, "forbidden", nil)
}
