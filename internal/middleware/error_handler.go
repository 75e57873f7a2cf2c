package middleware

import (
	"errors"

	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

var kindStatus = map[domain.Kind]int{
	domain.KindValidation:               fiber.StatusBadRequest,
	domain.KindNotFound:                 fiber.StatusNotFound,
	domain.KindForbidden:                fiber.StatusForbidden,
	domain.KindInvalidTransition:        fiber.StatusConflict,
	domain.KindConcurrencyConflict:      fiber.StatusConflict,
	domain.KindInsufficientAvailability: fiber.StatusUnprocessableEntity,
	domain.KindInvalidReleaseAmount:     fiber.StatusUnprocessableEntity,
}

// ErrorHandler is the global error handler. Returns the standard error format.
// Domain errors keep their message; anything unclassified is logged and hidden behind a 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return response.Error(c, fe.Message, fe.Code, nil)
	}

	code := statusOf(err)
	if code == fiber.StatusInternalServerError {
		log.Error().Err(err).
			Str("trace_id", GetTraceID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("Unhandled error")
		return response.Coded(c, "Internal Server Error", code, domain.KindInternal.String(), nil)
	}
	return response.Coded(c, err.Error(), code, domain.KindOf(err).String(), nil)
}

// statusOf is the HTTP status ErrorHandler answers err with.
func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	if code, ok := kindStatus[domain.KindOf(err)]; ok {
		return code
	}
	return fiber.StatusInternalServerError
}
