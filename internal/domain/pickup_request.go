package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PickupStatus string

const (
	PickupStatusPending   PickupStatus = "pending"
	PickupStatusApproved  PickupStatus = "approved"
	PickupStatusRejected  PickupStatus = "rejected"
	PickupStatusReady     PickupStatus = "ready"
	PickupStatusPickedUp  PickupStatus = "picked_up"
	PickupStatusCompleted PickupStatus = "completed"
	PickupStatusCancelled PickupStatus = "cancelled"
)

// Terminal reports whether no further transition can leave s.
func (s PickupStatus) Terminal() bool {
	return s == PickupStatusRejected || s == PickupStatusCompleted || s == PickupStatusCancelled
}

// PickupRequest is one requester's claim against reserved child listings.
type PickupRequest struct {
	RequestID           uuid.UUID    `gorm:"column:request_id;type:uuid;primaryKey" json:"request_id"`
	GroupID             uuid.UUID    `gorm:"column:group_id;type:uuid;not null;index" json:"group_id"`
	SourceListingID     uuid.UUID    `gorm:"column:source_listing_id;type:uuid;not null" json:"source_listing_id"`
	RequesterID         uuid.UUID    `gorm:"column:requester_id;type:uuid;not null;uniqueIndex:idx_pickup_idempotency" json:"requester_id"`
	RequesterOrgID      uuid.UUID    `gorm:"column:requester_org_id;type:uuid;not null;index" json:"requester_org_id"`
	GroceryOrgID        uuid.UUID    `gorm:"column:grocery_org_id;type:uuid;not null;index" json:"grocery_org_id"`
	Quantity            int          `gorm:"column:quantity;not null" json:"quantity"`
	PickupDate          string       `gorm:"column:pickup_date;type:varchar(10);not null" json:"pickup_date"`
	PickupTime          string       `gorm:"column:pickup_time;type:varchar(5);not null" json:"pickup_time"`
	Notes               string       `gorm:"column:notes" json:"notes"`
	Status              PickupStatus `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`
	LastAction          string       `gorm:"column:last_action;type:varchar(30)" json:"last_action"`
	ApprovedAt          *time.Time   `gorm:"column:approved_at" json:"approved_at"`
	RejectedAt          *time.Time   `gorm:"column:rejected_at" json:"rejected_at"`
	MarkedReadyAt       *time.Time   `gorm:"column:marked_ready_at" json:"marked_ready_at"`
	MarkedPickedUpAt    *time.Time   `gorm:"column:marked_picked_up_at" json:"marked_picked_up_at"`
	ConfirmedReceivedAt *time.Time   `gorm:"column:confirmed_received_at" json:"confirmed_received_at"`
	CancelledAt         *time.Time   `gorm:"column:cancelled_at" json:"cancelled_at"`
	ProofOfPickupRef    *string      `gorm:"column:proof_of_pickup_ref" json:"proof_of_pickup_ref"`
	IdempotencyKey      *string      `gorm:"column:idempotency_key;uniqueIndex:idx_pickup_idempotency" json:"-"`
	Version             int64        `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt           time.Time    `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt           time.Time    `gorm:"column:updatedAt" json:"updatedAt"`

	Listings []PickupRequestListing `gorm:"foreignKey:RequestID;references:RequestID" json:"listings,omitempty"`
}

func (PickupRequest) TableName() string {
	return "PickupRequests"
}

func (p *PickupRequest) BeforeCreate(tx *gorm.DB) error {
	if p.RequestID == uuid.Nil {
		p.RequestID = uuid.New()
	}
	return nil
}

// PickupRequestListing is the join between a request and the child listings it reserved.
type PickupRequestListing struct {
	RequestID uuid.UUID `gorm:"column:request_id;type:uuid;primaryKey" json:"request_id"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	Quantity  int       `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAt time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (PickupRequestListing) TableName() string {
	return "PickupRequestListings"
}
