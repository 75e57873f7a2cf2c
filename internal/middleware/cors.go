package middleware

import (
	"strings"

	"foodbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	corsAllowMethods  = "GET, POST, PATCH, OPTIONS"
	corsAllowHeaders  = "Content-Type, Idempotency-Key, traceparent, tracestate, dev-password"
	corsExposeHeaders = "X-Trace-Id"
)

// CORSConfig holds CORS configuration (suffix + dev password).
type CORSConfig struct {
	AllowedSuffix string
	DevPassword   string
}

// CORS allows origins ending with AllowedSuffix, localhost during development, and
// requests carrying the dev-password header. Credentials are allowed so the session
// cookie travels with the SSE stream.
func CORS(cfg CORSConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		// Same-origin or non-browser client.
		if origin == "" {
			return c.Next()
		}
		if !originAllowed(c, cfg, origin) {
			return response.Forbidden(c, "Not allowed by CORS")
		}
		setCORSHeaders(c, origin)
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

func originAllowed(c *fiber.Ctx, cfg CORSConfig, origin string) bool {
	lower := strings.ToLower(origin)
	switch {
	case strings.HasPrefix(lower, "http://localhost:"), strings.HasPrefix(lower, "http://127.0.0.1:"):
		return c.Method() == fiber.MethodOptions || cfg.DevPassword == "" || c.Get("dev-password") == cfg.DevPassword
	case cfg.AllowedSuffix != "" && strings.HasSuffix(lower, strings.ToLower(cfg.AllowedSuffix)):
		return true
	case cfg.DevPassword != "" && c.Get("dev-password") == cfg.DevPassword:
		return true
	}
	return false
}

func setCORSHeaders(c *fiber.Ctx, origin string) {
	c.Set("Access-Control-Allow-Origin", origin)
	c.Set("Access-Control-Allow-Credentials", "true")
	c.Set("Access-Control-Allow-Methods", corsAllowMethods)
	c.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	c.Set("Access-Control-Expose-Headers", corsExposeHeaders)
	c.Set(fiber.HeaderVary, "Origin")
}
