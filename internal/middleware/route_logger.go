package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RouteLogger logs each request on exit with its status, duration, trace ID and the acting
// organization. 4xx answers log at warn and 5xx at error so a quiet log means a healthy API.
func RouteLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		traceID := GetTraceID(c)
		if traceID == "" {
			traceID = "no-trace-id"
		}
		ev := log.WithLevel(levelFor(status)).
			Str("trace_id", traceID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Int64("ms", time.Since(start).Milliseconds())
		if actor := GetActor(c); actor.UserID != uuid.Nil {
			ev = ev.Str("user_id", actor.UserID.String()).Str("org_id", actor.OrgID.String())
		}
		ev.Msg("Request handled")
		return err
	}
}

func levelFor(status int) zerolog.Level {
	switch {
	case status >= fiber.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= fiber.StatusBadRequest:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
