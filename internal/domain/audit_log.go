package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is a write-once record of a state-changing operation.
type AuditLog struct {
	AuditID    uuid.UUID      `gorm:"column:audit_id;type:uuid;primaryKey" json:"audit_id"`
	ActorID    uuid.UUID      `gorm:"column:actor_id;type:uuid;not null" json:"actor_id"`
	Action     string         `gorm:"column:action;type:varchar(30);not null" json:"action"`
	EntityType string         `gorm:"column:entity_type;type:varchar(30);not null;index:idx_audit_entity" json:"entity_type"`
	EntityID   uuid.UUID      `gorm:"column:entity_id;type:uuid;not null;index:idx_audit_entity" json:"entity_id"`
	Before     datatypes.JSON `gorm:"column:before;type:jsonb" json:"before"`
	After      datatypes.JSON `gorm:"column:after;type:jsonb" json:"after"`
	CreatedAt  time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (AuditLog) TableName() string {
	return "AuditLogs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.AuditID == uuid.Nil {
		a.AuditID = uuid.New()
	}
	return nil
}
