package audit

import (
	"foodbridge-backend/internal/application/audit"
	"foodbridge-backend/internal/middleware"
	"foodbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *audit.Service
}

// GET /api/v1/audit/:entity_type/:entity_id
func (h *Handlers) ListForEntity(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "entity_id")
	if err != nil {
		return err
	}
	logs, err := h.Service.ListForEntity(c.UserContext(), c.Params("entity_type"), id)
	if err != nil {
		return err
	}
	return response.List(c, "Audit log fetched successfully", logs)
}
