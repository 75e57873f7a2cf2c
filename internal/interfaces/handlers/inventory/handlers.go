package inventory

import (
	"foodbridge-backend/internal/application/inventory"
	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/middleware"
	"foodbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *inventory.Service
}

// GET /api/v1/inventory?status=
func (h *Handlers) List(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	items, err := h.Service.ListForOrg(c.UserContext(), actor.OrgID, domain.InventoryStatus(c.Query("status")))
	if err != nil {
		return err
	}
	return response.List(c, "Inventory fetched successfully", items)
}

// PATCH /api/v1/inventory/:item_id/distribute
func (h *Handlers) Distribute(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "item_id")
	if err != nil {
		return err
	}
	actor := middleware.GetActor(c)
	item, err := h.Service.MarkDistributed(c.UserContext(), inventory.DistributeInput{
		ItemID:     id,
		ActorID:    actor.UserID,
		ActorOrgID: actor.OrgID,
	})
	if err != nil {
		return err
	}
	return response.Success(c, "Inventory item distributed", item, nil)
}
