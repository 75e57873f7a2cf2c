package pickups

import (
	"foodbridge-backend/internal/application/pickups"
	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/middleware"
	"foodbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const idempotencyHeader = "Idempotency-Key"

type Handlers struct {
	Service *pickups.Service
}

type createBody struct {
	ListingID      string `json:"listing_id"`
	Quantity       int    `json:"quantity"`
	PickupDate     string `json:"pickup_date"`
	PickupTime     string `json:"pickup_time"`
	Notes          string `json:"notes"`
	IdempotencyKey string `json:"idempotency_key"`
}

type transitionBody struct {
	ProofOfPickupRef string `json:"proof_of_pickup_ref"`
}

// POST /api/v1/pickups
// The idempotency key may come from the Idempotency-Key header or the body; the header wins.
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body createBody
	if err := c.BodyParser(&body); err != nil {
		return domain.Validation("Invalid request body")
	}
	listingID, err := parseUUID(body.ListingID, "listing_id")
	if err != nil {
		return err
	}
	key := c.Get(idempotencyHeader)
	if key == "" {
		key = body.IdempotencyKey
	}
	actor := middleware.GetActor(c)
	req, err := h.Service.CreatePickupRequest(c.UserContext(), pickups.CreateInput{
		ListingID:      listingID,
		RequesterID:    actor.UserID,
		RequesterOrgID: actor.OrgID,
		Quantity:       body.Quantity,
		PickupDate:     body.PickupDate,
		PickupTime:     body.PickupTime,
		Notes:          body.Notes,
		IdempotencyKey: key,
	})
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Pickup request created successfully", req, nil)
}

// GET /api/v1/pickups?status=
func (h *Handlers) List(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	data, err := h.Service.ListForOrg(c.UserContext(), actor.OrgID, domain.PickupStatus(c.Query("status")))
	if err != nil {
		return err
	}
	return response.List(c, "Pickup requests fetched successfully", data)
}

// GET /api/v1/pickups/:request_id
// Only the requester and grocery orgs see a request.
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "request_id")
	if err != nil {
		return err
	}
	req, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	actor := middleware.GetActor(c)
	if actor.OrgID != req.RequesterOrgID && actor.OrgID != req.GroceryOrgID {
		return domain.ErrPickupRequestNotFound
	}
	return response.Success(c, "Pickup request fetched successfully", req, nil)
}

// POST /api/v1/pickups/:request_id/:action
func (h *Handlers) Transition(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "request_id")
	if err != nil {
		return err
	}
	action := c.Params("action")
	if !pickups.IsAction(action) || action == pickups.ActionCreate {
		return domain.Validation("Unknown action: " + action)
	}
	var body transitionBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return domain.Validation("Invalid request body")
		}
	}
	actor := middleware.GetActor(c)
	req, err := h.Service.Transition(c.UserContext(), pickups.TransitionInput{
		RequestID:        id,
		Action:           action,
		ActorID:          actor.UserID,
		ActorOrgID:       actor.OrgID,
		ProofOfPickupRef: body.ProofOfPickupRef,
	})
	if err != nil {
		return err
	}
	return response.Success(c, "Pickup request updated successfully", req, nil)
}
