package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"foodbridge-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var validEntityTypes = map[string]bool{
	domain.EntityListingGroup:  true,
	domain.EntityListing:       true,
	domain.EntityPickupRequest: true,
	domain.EntityInventoryItem: true,
}

// Entry is one state change to append. Before is nil for creations.
type Entry struct {
	ActorID    uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Before     interface{}
	After      interface{}
}

type Service struct {
	DB *gorm.DB
}

// Append writes entries in one insert. Entries are never updated afterwards.
func (s *Service) Append(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]domain.AuditLog, 0, len(entries))
	for _, e := range entries {
		before, err := snapshot(e.Before)
		if err != nil {
			return err
		}
		after, err := snapshot(e.After)
		if err != nil {
			return err
		}
		rows = append(rows, domain.AuditLog{
			ActorID:    e.ActorID,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Before:     before,
			After:      after,
		})
	}
	if err := s.DB.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("append audit entries: %w", err)
	}
	return nil
}

// Record appends after a commit. The write is detached from the caller's cancellation
// and a failure is logged, since the state change it describes is already durable.
func (s *Service) Record(ctx context.Context, entries ...Entry) {
	if s == nil {
		return
	}
	if err := s.Append(context.WithoutCancel(ctx), entries...); err != nil {
		ev := log.Error().Err(err).Int("entries", len(entries))
		if len(entries) > 0 {
			ev = ev.Str("entity_type", entries[0].EntityType).Str("entity_id", entries[0].EntityID.String())
		}
		ev.Msg("Audit append failed")
	}
}

// ListForEntity returns the entity's history, oldest first.
func (s *Service) ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]domain.AuditLog, error) {
	if !validEntityTypes[entityType] {
		return nil, domain.Validation("Unknown entity type")
	}
	if entityID == uuid.Nil {
		return nil, domain.Validation("Entity ID is required")
	}
	var logs []domain.AuditLog
	if err := s.DB.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order(`"createdAt" ASC`).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func snapshot(v interface{}) (datatypes.JSON, error) {
	if v == nil {
		return datatypes.JSON("null"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(domain.Validation("Audit snapshot is not serializable"), err)
	}
	return datatypes.JSON(b), nil
}
