package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryStatus string

const (
	InventoryStatusActive      InventoryStatus = "active"
	InventoryStatusDistributed InventoryStatus = "distributed"
	InventoryStatusExpired     InventoryStatus = "expired"
)

// InventoryItem is stock held by the receiving organization after a completed pickup.
// Its lifecycle is independent of the ledger.
type InventoryItem struct {
	ItemID          uuid.UUID       `gorm:"column:item_id;type:uuid;primaryKey" json:"item_id"`
	OrgID           uuid.UUID       `gorm:"column:org_id;type:uuid;not null;index" json:"org_id"`
	PickupRequestID uuid.UUID       `gorm:"column:pickup_request_id;type:uuid;not null;uniqueIndex" json:"pickup_request_id"`
	ProductName     string          `gorm:"column:product_name;not null" json:"product_name"`
	Category        string          `gorm:"column:category;not null" json:"category"`
	Unit            string          `gorm:"column:unit;type:varchar(20);not null" json:"unit"`
	Quantity        int             `gorm:"column:quantity;not null" json:"quantity"`
	Status          InventoryStatus `gorm:"column:status;type:varchar(20);not null;default:'active'" json:"status"`
	ReceivedAt      time.Time       `gorm:"column:received_at;not null" json:"received_at"`
	DistributedAt   *time.Time      `gorm:"column:distributed_at" json:"distributed_at"`
	CreatedAt       time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (InventoryItem) TableName() string {
	return "InventoryItems"
}

func (i *InventoryItem) BeforeCreate(tx *gorm.DB) error {
	if i.ItemID == uuid.Nil {
		i.ItemID = uuid.New()
	}
	return nil
}
