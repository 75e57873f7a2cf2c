package middleware

import (
	"foodbridge-backend/internal/pkg/constants"
	"foodbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AuthorizePermission checks the session user's role against PermissionRoles.
// Every permission acts on behalf of an organization, so a user without one is refused too.
// An unconfigured permission is a wiring bug and answers 500.
func AuthorizePermission(permission string) fiber.Handler {
	roles, configured := constants.PermissionRoles[permission]
	if !configured || len(roles) == 0 {
		log.Error().Str("permission", permission).Msg("Permission has no roles configured")
	}
	return func(c *fiber.Ctx) error {
		if GetUser(c) == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if !configured || len(roles) == 0 {
			return response.Error(c, "Permission configuration error", fiber.StatusInternalServerError, nil)
		}
		actor := GetActor(c)
		if !constants.IsValidRole(actor.Role) {
			return response.Forbidden(c, "User role is not recognized")
		}
		if !constants.AllowedRole(permission, actor.Role) {
			return response.Forbidden(c, "User is Forbidden from performing this action")
		}
		if actor.OrgID == uuid.Nil {
			return response.Forbidden(c, "Organization not associated with user")
		}
		return c.Next()
	}
}
