package inventory

import (
	"context"
	"errors"
	"time"

	"foodbridge-backend/internal/application/audit"
	"foodbridge-backend/internal/application/notifications"
	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/pkg/clock"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const actionDistribute = "distribute"

// Service manages stock received through completed pickups. Nothing here touches the ledger.
type Service struct {
	DB       *gorm.DB
	Audit    *audit.Service
	Notifier notifications.Notifier
	Clock    clock.Clock
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

// CreateFromPickup records the receiving organization's stock for a completed request.
// It runs inside the transaction that completes the request; a second call for the same
// request fails on the unique pickup_request_id index.
func CreateFromPickup(tx *gorm.DB, req *domain.PickupRequest, group domain.ListingGroup, receivedAt time.Time) (*domain.InventoryItem, error) {
	item := &domain.InventoryItem{
		ItemID:          uuid.New(),
		OrgID:           req.RequesterOrgID,
		PickupRequestID: req.RequestID,
		ProductName:     group.ProductName,
		Category:        group.Category,
		Unit:            group.Unit,
		Quantity:        req.Quantity,
		Status:          domain.InventoryStatusActive,
		ReceivedAt:      receivedAt,
		CreatedAt:       receivedAt,
		UpdatedAt:       receivedAt,
	}
	if err := tx.Create(item).Error; err != nil {
		return nil, domain.Internal("create inventory item", err)
	}
	return item, nil
}

func (s *Service) Get(ctx context.Context, itemID uuid.UUID) (*domain.InventoryItem, error) {
	if itemID == uuid.Nil {
		return nil, domain.Validation("item_id is required")
	}
	var item domain.InventoryItem
	if err := s.DB.WithContext(ctx).Where("item_id = ?", itemID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInventoryItemNotFound
		}
		return nil, domain.Internal("load inventory item", err)
	}
	return &item, nil
}

// ListForOrg returns the organization's items, newest first. An empty status lists all.
func (s *Service) ListForOrg(ctx context.Context, orgID uuid.UUID, status domain.InventoryStatus) ([]domain.InventoryItem, error) {
	if orgID == uuid.Nil {
		return nil, domain.Validation("Organization not associated with user")
	}
	q := s.DB.WithContext(ctx).Where("org_id = ?", orgID)
	if status != "" {
		switch status {
		case domain.InventoryStatusActive, domain.InventoryStatusDistributed, domain.InventoryStatusExpired:
		default:
			return nil, domain.Validation("Unknown inventory status")
		}
		q = q.Where("status = ?", status)
	}
	var items []domain.InventoryItem
	if err := q.Order(`"received_at" DESC`).Find(&items).Error; err != nil {
		return nil, domain.Internal("list inventory", err)
	}
	return items, nil
}

type DistributeInput struct {
	ItemID     uuid.UUID
	ActorID    uuid.UUID
	ActorOrgID uuid.UUID
}

// MarkDistributed moves an active item to distributed.
func (s *Service) MarkDistributed(ctx context.Context, in DistributeInput) (*domain.InventoryItem, error) {
	var before, after domain.InventoryItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", in.ItemID).First(&before).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrInventoryItemNotFound
			}
			return domain.Internal("load inventory item", err)
		}
		if in.ActorOrgID != uuid.Nil && before.OrgID != in.ActorOrgID {
			return domain.ErrForbiddenActor
		}
		if before.Status != domain.InventoryStatusActive {
			return domain.ErrInvalidTransition
		}
		now := s.now()
		res := tx.Model(&domain.InventoryItem{}).
			Where("item_id = ? AND status = ?", before.ItemID, domain.InventoryStatusActive).
			Updates(map[string]interface{}{
				"status":         domain.InventoryStatusDistributed,
				"distributed_at": now,
				"updatedAt":      now,
			})
		if res.Error != nil {
			return domain.Internal("update inventory item", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrConcurrencyConflict
		}
		after = before
		after.Status = domain.InventoryStatusDistributed
		after.DistributedAt = &now
		after.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, audit.Entry{
		ActorID:    in.ActorID,
		Action:     actionDistribute,
		EntityType: domain.EntityInventoryItem,
		EntityID:   after.ItemID,
		Before:     before,
		After:      after,
	})
	if s.Notifier != nil {
		s.Notifier.Notify(context.WithoutCancel(ctx), domain.Event{
			EntityType: domain.EntityInventoryItem,
			EntityID:   after.ItemID,
			ActorID:    in.ActorID,
			Operation:  actionDistribute,
			NewState:   string(after.Status),
			OrgIDs:     []uuid.UUID{after.OrgID},
			Timestamp:  s.now(),
		})
	}
	return &after, nil
}
