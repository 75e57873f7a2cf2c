package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListingGroup is the quantity ledger for one original donation batch.
// Product fields are immutable once created.
type ListingGroup struct {
	GroupID          uuid.UUID `gorm:"column:group_id;type:uuid;primaryKey" json:"group_id"`
	OrgID            uuid.UUID `gorm:"column:org_id;type:uuid;not null;index" json:"org_id"`
	ProductName      string    `gorm:"column:product_name;not null" json:"product_name"`
	Category         string    `gorm:"column:category;not null" json:"category"`
	Unit             string    `gorm:"column:unit;type:varchar(20);not null" json:"unit"`
	OriginalQuantity int       `gorm:"column:original_quantity;not null" json:"original_quantity"`
	TotalReserved    int       `gorm:"column:total_reserved;not null;default:0" json:"total_reserved"`
	TotalAvailable   int       `gorm:"column:total_available;not null;default:0" json:"total_available"`
	TotalCompleted   int       `gorm:"column:total_completed;not null;default:0" json:"total_completed"`
	IsFullyConsumed  bool      `gorm:"column:is_fully_consumed;not null;default:false" json:"is_fully_consumed"`
	Version          int64     `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt        time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (ListingGroup) TableName() string {
	return "ListingGroups"
}

// BeforeCreate: never insert zero UUID for primary key; generate random when not set.
func (g *ListingGroup) BeforeCreate(tx *gorm.DB) error {
	if g.GroupID == uuid.Nil {
		g.GroupID = uuid.New()
	}
	return nil
}

// GroupSummary is the externally visible view of a group's ledger.
type GroupSummary struct {
	GroupID          uuid.UUID `json:"group_id"`
	OriginalQuantity int       `json:"original_quantity"`
	TotalReserved    int       `json:"total_reserved"`
	TotalAvailable   int       `json:"total_available"`
	TotalCompleted   int       `json:"total_completed"`
	IsFullyConsumed  bool      `json:"is_fully_consumed"`
}

func (g ListingGroup) Summary() GroupSummary {
	return GroupSummary{
		GroupID:          g.GroupID,
		OriginalQuantity: g.OriginalQuantity,
		TotalReserved:    g.TotalReserved,
		TotalAvailable:   g.TotalAvailable,
		TotalCompleted:   g.TotalCompleted,
		IsFullyConsumed:  g.IsFullyConsumed,
	}
}
