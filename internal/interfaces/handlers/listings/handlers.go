package listings

import (
	"time"

	"foodbridge-backend/internal/application/listinggroups"
	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/middleware"
	"foodbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers serves clearance listings and their listing groups.
type Handlers struct {
	Service *listinggroups.Service
}

type publishBody struct {
	ProductName    string     `json:"product_name"`
	Category       string     `json:"category"`
	Unit           string     `json:"unit"`
	Quantity       int        `json:"quantity"`
	PickupDeadline *time.Time `json:"pickup_deadline"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

type splitBody struct {
	Portions []int `json:"portions"`
}

// POST /api/v1/listings/publish
func (h *Handlers) Publish(c *fiber.Ctx) error {
	var body publishBody
	if err := c.BodyParser(&body); err != nil {
		return domain.Validation("Invalid request body")
	}
	actor := middleware.GetActor(c)
	res, err := h.Service.PublishListing(c.UserContext(), listinggroups.PublishInput{
		OrgID:          actor.OrgID,
		ActorID:        actor.UserID,
		ProductName:    body.ProductName,
		Category:       body.Category,
		Unit:           body.Unit,
		Quantity:       body.Quantity,
		PickupDeadline: body.PickupDeadline,
		ExpiresAt:      body.ExpiresAt,
	})
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Listing published successfully", res, nil)
}

// GET /api/v1/listings/browse?category=&org_id=&limit=
func (h *Handlers) Browse(c *fiber.Ctx) error {
	f := listinggroups.BrowseFilter{
		Category: c.Query("category"),
		Limit:    c.QueryInt("limit", 0),
	}
	if s := c.Query("org_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return domain.Validation("Invalid org_id format")
		}
		f.OrgID = id
	}
	data, err := h.Service.BrowseOpenListings(c.UserContext(), f)
	if err != nil {
		return err
	}
	return response.List(c, "Listings fetched successfully", data)
}

// GET /api/v1/listings/:listing_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "listing_id")
	if err != nil {
		return err
	}
	listing, err := h.Service.GetListing(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Listing fetched successfully", listing, nil)
}

// POST /api/v1/listings/:listing_id/split
func (h *Handlers) Split(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "listing_id")
	if err != nil {
		return err
	}
	var body splitBody
	if err := c.BodyParser(&body); err != nil {
		return domain.Validation("Invalid request body")
	}
	actor := middleware.GetActor(c)
	listings, err := h.Service.SplitListing(c.UserContext(), listinggroups.SplitInput{
		ListingID:  id,
		ActorID:    actor.UserID,
		ActorOrgID: actor.OrgID,
		Portions:   body.Portions,
	})
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Listing split successfully", listings, nil)
}

// POST /api/v1/listings/:listing_id/expire
func (h *Handlers) Expire(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "listing_id")
	if err != nil {
		return err
	}
	actor := middleware.GetActor(c)
	listing, err := h.Service.ExpireListing(c.UserContext(), listinggroups.ExpireInput{
		ListingID:  id,
		ActorID:    actor.UserID,
		ActorOrgID: actor.OrgID,
	})
	if err != nil {
		return err
	}
	return response.Success(c, "Listing expired successfully", listing, nil)
}

// GET /api/v1/listing-groups/:group_id/summary
func (h *Handlers) GroupSummary(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "group_id")
	if err != nil {
		return err
	}
	summary, err := h.Service.GetGroupSummary(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Group summary fetched successfully", summary, nil)
}

// GET /api/v1/listing-groups/:group_id/listings
func (h *Handlers) GroupListings(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "group_id")
	if err != nil {
		return err
	}
	listings, err := h.Service.ListGroupListings(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.List(c, "Group listings fetched successfully", listings)
}
