package middleware

import (
	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals("auth", user)
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// Actor is the acting user and their organization, read from the session.
type Actor struct {
	UserID uuid.UUID
	OrgID  uuid.UUID
	Role   string
}

// GetActor parses the session user. Missing or malformed ids come back as uuid.Nil.
func GetActor(c *fiber.Ctx) Actor {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return Actor{}
	}
	var a Actor
	if s, _ := m["user_id"].(string); s != "" {
		a.UserID, _ = uuid.Parse(s)
	}
	if s, _ := m["org_id"].(string); s != "" {
		a.OrgID, _ = uuid.Parse(s)
	}
	a.Role, _ = m["role"].(string)
	return a
}

// ParamUUID parses a path parameter as a uuid.
func ParamUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	raw := c.Params(name)
	if raw == "" {
		return uuid.Nil, domain.Validation(name + " is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Validation("Invalid " + name + " format")
	}
	return id, nil
}
