package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EntityListingGroup  = "listing_group"
	EntityListing       = "listing"
	EntityPickupRequest = "pickup_request"
	EntityInventoryItem = "inventory_item"
)

// Event describes one state change for the notification fan-out.
// OrgIDs names the organizations whose user rooms receive the event.
type Event struct {
	EntityType string        `json:"entity_type"`
	EntityID   uuid.UUID     `json:"entity_id"`
	GroupID    *uuid.UUID    `json:"group_id,omitempty"`
	ListingID  *uuid.UUID    `json:"listing_id,omitempty"`
	ActorID    uuid.UUID     `json:"actor_id"`
	Operation  string        `json:"operation"`
	NewState   string        `json:"new_state"`
	Quantities *GroupSummary `json:"quantities,omitempty"`
	OrgIDs     []uuid.UUID   `json:"-"`
	Timestamp  time.Time     `json:"timestamp"`
}
