package listinggroups

import (
	"context"
	"errors"
	"strings"
	"time"

	"foodbridge-backend/internal/application/audit"
	"foodbridge-backend/internal/application/coordinator"
	"foodbridge-backend/internal/application/notifications"
	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/pkg/clock"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultBrowseLimit = 50
	maxBrowseLimit     = 200
)

// Service owns listing groups and their child listings. Listing ids are only allocated here.
type Service struct {
	DB          *gorm.DB
	Coordinator *coordinator.Coordinator
	Audit       *audit.Service
	Notifier    notifications.Notifier
	Clock       clock.Clock
}

type PublishInput struct {
	OrgID          uuid.UUID
	ActorID        uuid.UUID
	ProductName    string
	Category       string
	Unit           string
	Quantity       int
	PickupDeadline *time.Time
	ExpiresAt      *time.Time
}

// PublishResult is the new group with its first open listing.
type PublishResult struct {
	Group   domain.ListingGroup     `json:"group"`
	Listing domain.ClearanceListing `json:"listing"`
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

// PublishListing creates a group holding the whole quantity and one open listing carrying it.
func (s *Service) PublishListing(ctx context.Context, in PublishInput) (*PublishResult, error) {
	if in.OrgID == uuid.Nil {
		return nil, domain.Validation("Organization not associated with user")
	}
	productName := strings.TrimSpace(in.ProductName)
	category := strings.TrimSpace(in.Category)
	unit := strings.TrimSpace(in.Unit)
	if productName == "" || category == "" || unit == "" {
		return nil, domain.Validation("product_name, category and unit are required")
	}
	if in.ExpiresAt != nil && in.PickupDeadline != nil && in.ExpiresAt.Before(*in.PickupDeadline) {
		return nil, domain.Validation("expires_at must not be before pickup_deadline")
	}
	group, err := domain.NewLedger(domain.ListingGroup{
		GroupID:     uuid.New(),
		OrgID:       in.OrgID,
		ProductName: productName,
		Category:    category,
		Unit:        unit,
		Version:     1,
	}, in.Quantity)
	if err != nil {
		return nil, err
	}
	now := s.now()
	group.CreatedAt = now
	group.UpdatedAt = now
	listing := newChildListing(group, in.Quantity, now)
	listing.PickupDeadline = in.PickupDeadline
	listing.ExpiresAt = in.ExpiresAt

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return domain.Internal("create listing group", err)
		}
		if err := tx.Create(&listing).Error; err != nil {
			return domain.Internal("create listing", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m := &Mutation{
		Operation: OpPublish,
		Group:     group,
		Listings:  []ListingChange{{After: listing}},
	}
	s.announce(ctx, m, in.ActorID)
	return &PublishResult{Group: group, Listing: listing}, nil
}

// announce records and publishes a committed mutation.
func (s *Service) announce(ctx context.Context, m *Mutation, actorID uuid.UUID, orgIDs ...uuid.UUID) {
	s.Audit.Record(ctx, m.AuditEntries(actorID)...)
	if s.Notifier != nil {
		s.Notifier.Notify(context.WithoutCancel(ctx), m.Events(actorID, s.now(), orgIDs...)...)
	}
}

func (s *Service) GetGroupSummary(ctx context.Context, groupID uuid.UUID) (domain.GroupSummary, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return domain.GroupSummary{}, err
	}
	return group.Summary(), nil
}

func (s *Service) GetGroup(ctx context.Context, groupID uuid.UUID) (*domain.ListingGroup, error) {
	if groupID == uuid.Nil {
		return nil, domain.Validation("group_id is required")
	}
	var group domain.ListingGroup
	if err := s.DB.WithContext(ctx).Where("group_id = ?", groupID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, domain.Internal("load listing group", err)
	}
	return &group, nil
}

func (s *Service) GetListing(ctx context.Context, listingID uuid.UUID) (*domain.ClearanceListing, error) {
	if listingID == uuid.Nil {
		return nil, domain.Validation("listing_id is required")
	}
	return loadListing(s.DB.WithContext(ctx), listingID)
}

// ListGroupListings returns every listing carved from the group, oldest first.
func (s *Service) ListGroupListings(ctx context.Context, groupID uuid.UUID) ([]domain.ClearanceListing, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	var listings []domain.ClearanceListing
	if err := s.DB.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order(`"createdAt" ASC`).
		Find(&listings).Error; err != nil {
		return nil, domain.Internal("list group listings", err)
	}
	return listings, nil
}

type BrowseFilter struct {
	Category string
	OrgID    uuid.UUID
	Limit    int
}

// BrowseOpenListings returns open, unexpired listings with quantity left, newest first.
func (s *Service) BrowseOpenListings(ctx context.Context, f BrowseFilter) ([]domain.ClearanceListing, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultBrowseLimit
	}
	if limit > maxBrowseLimit {
		limit = maxBrowseLimit
	}
	q := s.DB.WithContext(ctx).
		Model(&domain.ClearanceListing{}).
		Where(`"ClearanceListings".status = ? AND "ClearanceListings".quantity > 0`, domain.ListingStatusOpen).
		Where(`("ClearanceListings".expires_at IS NULL OR "ClearanceListings".expires_at > ?)`, s.now())
	if f.OrgID != uuid.Nil {
		q = q.Where(`"ClearanceListings".org_id = ?`, f.OrgID)
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		q = q.Joins(`JOIN "ListingGroups" ON "ListingGroups".group_id = "ClearanceListings".group_id`).
			Where(`"ListingGroups".category = ?`, c)
	}
	var listings []domain.ClearanceListing
	if err := q.Order(`"ClearanceListings"."createdAt" DESC`).Limit(limit).Find(&listings).Error; err != nil {
		return nil, domain.Internal("browse listings", err)
	}
	return listings, nil
}

func loadListing(db *gorm.DB, listingID uuid.UUID) (*domain.ClearanceListing, error) {
	var listing domain.ClearanceListing
	if err := db.Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrListingNotFound
		}
		return nil, domain.Internal("load listing", err)
	}
	return &listing, nil
}

// newChildListing allocates an open listing in group. Every listing id is minted here.
func newChildListing(group domain.ListingGroup, quantity int, now time.Time) domain.ClearanceListing {
	groupID := group.GroupID
	return domain.ClearanceListing{
		ListingID: uuid.New(),
		GroupID:   &groupID,
		OrgID:     group.OrgID,
		Quantity:  quantity,
		Status:    domain.ListingStatusOpen,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
