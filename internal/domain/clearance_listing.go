package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ListingStatus string

const (
	ListingStatusOpen      ListingStatus = "open"
	ListingStatusReserved  ListingStatus = "reserved"
	ListingStatusCompleted ListingStatus = "completed"
	ListingStatusExpired   ListingStatus = "expired"
	// ListingStatusMerged marks a released child whose quantity went back into its split source.
	ListingStatusMerged ListingStatus = "merged"
)

// ClearanceListing is the browsable unit carved from a ListingGroup.
// GroupID is nil for legacy listings published before groups existed.
type ClearanceListing struct {
	ListingID       uuid.UUID     `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	GroupID         *uuid.UUID    `gorm:"column:group_id;type:uuid;index" json:"group_id"`
	OrgID           uuid.UUID     `gorm:"column:org_id;type:uuid;not null;index" json:"org_id"`
	Quantity        int           `gorm:"column:quantity;not null" json:"quantity"`
	Status          ListingStatus `gorm:"column:status;type:varchar(20);not null;default:'open';index" json:"status"`
	PickupDeadline  *time.Time    `gorm:"column:pickup_deadline" json:"pickup_deadline"`
	ExpiresAt       *time.Time    `gorm:"column:expires_at" json:"expires_at"`
	PickupRequestID *uuid.UUID    `gorm:"column:pickup_request_id;type:uuid;index" json:"pickup_request_id"`
	SplitFromID     *uuid.UUID    `gorm:"column:split_from_id;type:uuid" json:"split_from_id"`
	Version         int64         `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt       time.Time     `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt       time.Time     `gorm:"column:updatedAt" json:"updatedAt"`
}

func (ClearanceListing) TableName() string {
	return "ClearanceListings"
}

// BeforeCreate sets listing_id if not already set (DBs without default uuid).
func (l *ClearanceListing) BeforeCreate(tx *gorm.DB) error {
	if l.ListingID == uuid.Nil {
		l.ListingID = uuid.New()
	}
	return nil
}
