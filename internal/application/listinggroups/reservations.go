package listinggroups

import (
	"time"

	"foodbridge-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// The functions in this file run inside Coordinator.WithGroup. They persist through tx and
// update *group in place so several calls in one critical section see each other's effects.

// ReserveFromListing reserves amount from an open listing for requestID. A partial reservation
// shrinks the listing to the remainder and carves a reserved child of exactly amount.
func (s *Service) ReserveFromListing(tx *gorm.DB, group *domain.ListingGroup, listingID, requestID uuid.UUID, amount int) (*Mutation, error) {
	if amount <= 0 {
		return nil, domain.Validation("Quantity must be positive")
	}
	listing, err := loadListing(tx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.GroupID == nil || *listing.GroupID != group.GroupID {
		return nil, domain.ErrListingNotFound
	}
	now := s.now()
	if !isOpen(listing, now) {
		return nil, domain.ErrListingNotOpen
	}
	if amount > listing.Quantity {
		return nil, domain.ErrInsufficientAvailability
	}
	next, err := domain.Reserve(*group, amount)
	if err != nil {
		return nil, err
	}

	groupBefore := *group
	before := *listing
	var changes []ListingChange
	if amount < listing.Quantity {
		listing.Quantity -= amount
		if err := saveListing(tx, listing, now); err != nil {
			return nil, err
		}
		child := newChildListing(*group, amount, now)
		child.Status = domain.ListingStatusReserved
		child.PickupRequestID = &requestID
		child.SplitFromID = &before.ListingID
		child.PickupDeadline = before.PickupDeadline
		child.ExpiresAt = before.ExpiresAt
		if err := tx.Create(&child).Error; err != nil {
			return nil, domain.Internal("create reserved listing", err)
		}
		changes = append(changes, ListingChange{Before: &before, After: *listing}, ListingChange{After: child})
	} else {
		listing.Status = domain.ListingStatusReserved
		listing.PickupRequestID = &requestID
		if err := saveListing(tx, listing, now); err != nil {
			return nil, err
		}
		changes = append(changes, ListingChange{Before: &before, After: *listing})
	}

	if err := saveGroup(tx, group, next, now); err != nil {
		return nil, err
	}
	return &Mutation{Operation: OpReserve, GroupBefore: groupBefore, Group: *group, Listings: changes}, nil
}

// ReleaseToListing returns the request's reservation to the group. A released child goes back
// into its split source while that source is still open; otherwise it reopens on its own.
func (s *Service) ReleaseToListing(tx *gorm.DB, group *domain.ListingGroup, requestID uuid.UUID) (*Mutation, error) {
	reserved, total, err := reservedFor(tx, group.GroupID, requestID)
	if err != nil {
		return nil, err
	}
	next, err := domain.Release(*group, total)
	if err != nil {
		return nil, err
	}

	now := s.now()
	groupBefore := *group
	var changes []ListingChange
	for i := range reserved {
		child := &reserved[i]
		before := *child
		source, err := mergeTarget(tx, child)
		if err != nil {
			return nil, err
		}
		if source != nil {
			sourceBefore := *source
			source.Quantity += child.Quantity
			if err := saveListing(tx, source, now); err != nil {
				return nil, err
			}
			child.Quantity = 0
			child.Status = domain.ListingStatusMerged
			changes = append(changes, ListingChange{Before: &sourceBefore, After: *source})
		} else {
			child.Status = domain.ListingStatusOpen
		}
		child.PickupRequestID = nil
		if err := saveListing(tx, child, now); err != nil {
			return nil, err
		}
		changes = append(changes, ListingChange{Before: &before, After: *child})
	}

	if err := saveGroup(tx, group, next, now); err != nil {
		return nil, err
	}
	return &Mutation{Operation: OpRelease, GroupBefore: groupBefore, Group: *group, Listings: changes}, nil
}

// CompleteListing converts the request's reservation into completed stock.
func (s *Service) CompleteListing(tx *gorm.DB, group *domain.ListingGroup, requestID uuid.UUID) (*Mutation, error) {
	reserved, total, err := reservedFor(tx, group.GroupID, requestID)
	if err != nil {
		return nil, err
	}
	next, err := domain.Complete(*group, total)
	if err != nil {
		return nil, err
	}

	now := s.now()
	groupBefore := *group
	changes := make([]ListingChange, 0, len(reserved))
	for i := range reserved {
		listing := &reserved[i]
		before := *listing
		listing.Status = domain.ListingStatusCompleted
		if err := saveListing(tx, listing, now); err != nil {
			return nil, err
		}
		changes = append(changes, ListingChange{Before: &before, After: *listing})
	}

	if err := saveGroup(tx, group, next, now); err != nil {
		return nil, err
	}
	return &Mutation{Operation: OpComplete, GroupBefore: groupBefore, Group: *group, Listings: changes}, nil
}

func isOpen(l *domain.ClearanceListing, now time.Time) bool {
	if l.Status != domain.ListingStatusOpen {
		return false
	}
	return l.ExpiresAt == nil || now.Before(*l.ExpiresAt)
}

// reservedFor loads the listings currently reserved by requestID and their total quantity.
func reservedFor(tx *gorm.DB, groupID, requestID uuid.UUID) ([]domain.ClearanceListing, int, error) {
	var listings []domain.ClearanceListing
	if err := tx.Where("group_id = ? AND pickup_request_id = ? AND status = ?", groupID, requestID, domain.ListingStatusReserved).
		Order(`"createdAt" ASC`).
		Find(&listings).Error; err != nil {
		return nil, 0, domain.Internal("load reserved listings", err)
	}
	if len(listings) == 0 {
		return nil, 0, domain.ErrInvalidReleaseAmount
	}
	total := 0
	for _, l := range listings {
		total += l.Quantity
	}
	return listings, total, nil
}

// mergeTarget returns child's split source when it can take the quantity back, or nil.
func mergeTarget(tx *gorm.DB, child *domain.ClearanceListing) (*domain.ClearanceListing, error) {
	if child.SplitFromID == nil {
		return nil, nil
	}
	var source domain.ClearanceListing
	err := tx.Where("listing_id = ?", *child.SplitFromID).Limit(1).Find(&source).Error
	if err != nil {
		return nil, domain.Internal("load split source", err)
	}
	if source.ListingID == uuid.Nil || source.Status != domain.ListingStatusOpen {
		return nil, nil
	}
	return &source, nil
}

// saveGroup writes next over group when nobody else bumped the version in between.
func saveGroup(tx *gorm.DB, group *domain.ListingGroup, next domain.ListingGroup, now time.Time) error {
	res := tx.Model(&domain.ListingGroup{}).
		Where("group_id = ? AND version = ?", group.GroupID, group.Version).
		Updates(map[string]interface{}{
			"total_available":   next.TotalAvailable,
			"total_reserved":    next.TotalReserved,
			"total_completed":   next.TotalCompleted,
			"is_fully_consumed": next.IsFullyConsumed,
			"version":           group.Version + 1,
			"updatedAt":         now,
		})
	if res.Error != nil {
		return domain.Internal("save listing group", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrConcurrencyConflict
	}
	next.Version = group.Version + 1
	next.UpdatedAt = now
	*group = next
	return nil
}

func saveListing(tx *gorm.DB, l *domain.ClearanceListing, now time.Time) error {
	res := tx.Model(&domain.ClearanceListing{}).
		Where("listing_id = ? AND version = ?", l.ListingID, l.Version).
		Updates(map[string]interface{}{
			"quantity":          l.Quantity,
			"status":            l.Status,
			"pickup_request_id": l.PickupRequestID,
			"version":           l.Version + 1,
			"updatedAt":         now,
		})
	if res.Error != nil {
		return domain.Internal("save listing", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrConcurrencyConflict
	}
	l.Version++
	l.UpdatedAt = now
	return nil
}
