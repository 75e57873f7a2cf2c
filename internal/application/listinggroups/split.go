package listinggroups

import (
	"context"

	"foodbridge-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SplitInput struct {
	ListingID  uuid.UUID
	ActorID    uuid.UUID
	ActorOrgID uuid.UUID
	Portions   []int
}

type ExpireInput struct {
	ListingID  uuid.UUID
	ActorID    uuid.UUID
	ActorOrgID uuid.UUID
}

// SplitListing carves an open listing into several open listings. The first portion stays on
// the original listing. The group's ledger does not move.
func (s *Service) SplitListing(ctx context.Context, in SplitInput) ([]domain.ClearanceListing, error) {
	if len(in.Portions) < 2 {
		return nil, domain.Validation("At least two portions are required")
	}
	for _, p := range in.Portions {
		if p <= 0 {
			return nil, domain.Validation("Portions must be positive")
		}
	}
	groupID, err := s.groupOf(ctx, in.ListingID)
	if err != nil {
		return nil, err
	}
	if groupID == nil {
		return nil, domain.Validation("Listing is not part of a listing group")
	}

	var m *Mutation
	err = s.Coordinator.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.Coordinator.WithGroup(ctx, *groupID, func(tx *gorm.DB, group *domain.ListingGroup) error {
			listing, err := s.ownedOpenListing(tx, in.ListingID, in.ActorOrgID)
			if err != nil {
				return err
			}
			sum := 0
			for _, p := range in.Portions {
				sum += p
			}
			if sum != listing.Quantity {
				return domain.Validation("Portions must add up to the listing quantity")
			}

			now := s.now()
			before := *listing
			listing.Quantity = in.Portions[0]
			if err := saveListing(tx, listing, now); err != nil {
				return err
			}
			changes := []ListingChange{{Before: &before, After: *listing}}
			for _, p := range in.Portions[1:] {
				child := newChildListing(*group, p, now)
				child.SplitFromID = &before.ListingID
				child.PickupDeadline = before.PickupDeadline
				child.ExpiresAt = before.ExpiresAt
				if err := tx.Create(&child).Error; err != nil {
					return domain.Internal("create split listing", err)
				}
				changes = append(changes, ListingChange{After: child})
			}
			m = &Mutation{Operation: OpSplit, GroupBefore: *group, Group: *group, Listings: changes}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.announce(ctx, m, in.ActorID)
	listings := make([]domain.ClearanceListing, 0, len(m.Listings))
	for _, c := range m.Listings {
		listings = append(listings, c.After)
	}
	return listings, nil
}

// ExpireListing moves an open listing to expired. Reserved listings are never touched, and
// the ledger keeps the stock as available.
func (s *Service) ExpireListing(ctx context.Context, in ExpireInput) (*domain.ClearanceListing, error) {
	groupID, err := s.groupOf(ctx, in.ListingID)
	if err != nil {
		return nil, err
	}

	var m *Mutation
	expire := func(tx *gorm.DB, group domain.ListingGroup) error {
		listing, err := s.ownedListing(tx, in.ListingID, in.ActorOrgID)
		if err != nil {
			return err
		}
		if listing.Status != domain.ListingStatusOpen {
			return domain.ErrListingNotOpen
		}
		before := *listing
		listing.Status = domain.ListingStatusExpired
		if err := saveListing(tx, listing, s.now()); err != nil {
			return err
		}
		m = &Mutation{Operation: OpExpire, GroupBefore: group, Group: group, Listings: []ListingChange{{Before: &before, After: *listing}}}
		return nil
	}

	err = s.Coordinator.RetryOnConflict(ctx, func(ctx context.Context) error {
		if groupID == nil {
			return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				return expire(tx, domain.ListingGroup{})
			})
		}
		return s.Coordinator.WithGroup(ctx, *groupID, func(tx *gorm.DB, group *domain.ListingGroup) error {
			return expire(tx, *group)
		})
	})
	if err != nil {
		return nil, err
	}

	s.announce(ctx, m, in.ActorID)
	listing := m.Listings[0].After
	return &listing, nil
}

// groupOf reads the listing's group outside any lock; callers re-check under the lock.
func (s *Service) groupOf(ctx context.Context, listingID uuid.UUID) (*uuid.UUID, error) {
	listing, err := s.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	return listing.GroupID, nil
}

func (s *Service) ownedListing(tx *gorm.DB, listingID, actorOrgID uuid.UUID) (*domain.ClearanceListing, error) {
	listing, err := loadListing(tx, listingID)
	if err != nil {
		return nil, err
	}
	if actorOrgID != uuid.Nil && listing.OrgID != actorOrgID {
		return nil, domain.ErrForbiddenActor
	}
	return listing, nil
}

func (s *Service) ownedOpenListing(tx *gorm.DB, listingID, actorOrgID uuid.UUID) (*domain.ClearanceListing, error) {
	listing, err := s.ownedListing(tx, listingID, actorOrgID)
	if err != nil {
		return nil, err
	}
	if !isOpen(listing, s.now()) {
		return nil, domain.ErrListingNotOpen
	}
	return listing, nil
}
