package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// APIVersion is echoed on every response so clients can detect a rolling deploy.
const APIVersion = "v1"

// ResponseFormatter sets the headers shared by every JSON response. Availability changes
// with each reservation, so nothing the API returns may be cached by the browser or a proxy.
func ResponseFormatter() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		c.Set(fiber.HeaderCacheControl, "no-store")
		c.Set("X-API-Version", APIVersion)
		return err
	}
}
