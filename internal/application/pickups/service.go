package pickups

import (
	"context"
	"errors"
	"strings"
	"time"

	"foodbridge-backend/internal/application/audit"
	"foodbridge-backend/internal/application/coordinator"
	"foodbridge-backend/internal/application/inventory"
	"foodbridge-backend/internal/application/listinggroups"
	"foodbridge-backend/internal/application/notifications"
	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/pkg/clock"
	"foodbridge-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	tracerName     = "foodbridge-backend/pickups"
	maxNotesLength = 1000
)

// Service drives pickup requests through their lifecycle. Every ledger effect runs inside
// the group's critical section; audit and notifications follow the commit.
type Service struct {
	DB          *gorm.DB
	Coordinator *coordinator.Coordinator
	Groups      *listinggroups.Service
	Audit       *audit.Service
	Notifier    notifications.Notifier
	Clock       clock.Clock
	Tracer      trace.Tracer
}

type CreateInput struct {
	ListingID      uuid.UUID
	RequesterID    uuid.UUID
	RequesterOrgID uuid.UUID
	Quantity       int
	PickupDate     string
	PickupTime     string
	Notes          string
	IdempotencyKey string
}

type TransitionInput struct {
	RequestID        uuid.UUID
	Action           string
	ActorID          uuid.UUID
	ActorOrgID       uuid.UUID
	ProofOfPickupRef string
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *Service) tracer() trace.Tracer {
	if s.Tracer != nil {
		return s.Tracer
	}
	return otel.Tracer(tracerName)
}

func validateCreate(in CreateInput) error {
	switch {
	case in.ListingID == uuid.Nil:
		return domain.Validation("listing_id is required")
	case in.RequesterID == uuid.Nil:
		return domain.Validation("requester_id is required")
	case in.RequesterOrgID == uuid.Nil:
		return domain.Validation("Organization not associated with user")
	case in.Quantity <= 0:
		return domain.Validation("Quantity must be positive")
	case !validation.IsValidPickupDate(in.PickupDate):
		return domain.Validation("pickup_date must be YYYY-MM-DD")
	case !validation.IsValidPickupTime(in.PickupTime):
		return domain.Validation("pickup_time must be HH:MM")
	case len(in.Notes) > maxNotesLength:
		return domain.Validation("notes is too long")
	}
	return nil
}

// CreatePickupRequest reserves quantity from a listing and opens a pending request for it.
// With an idempotency key, a repeated call by the same requester returns the first request.
// Like Transition, audit and events follow the commit and cannot roll it back.
func (s *Service) CreatePickupRequest(ctx context.Context, in CreateInput) (*domain.PickupRequest, error) {
	ctx, span := s.tracer().Start(ctx, "pickups.create", trace.WithAttributes(
		attribute.String("listing.id", in.ListingID.String()),
		attribute.Int("pickup.quantity", in.Quantity),
	))
	defer span.End()

	if err := validateCreate(in); err != nil {
		return nil, fail(span, err)
	}
	listing, err := s.Groups.GetListing(ctx, in.ListingID)
	if err != nil {
		return nil, fail(span, err)
	}
	if listing.GroupID == nil {
		return nil, fail(span, domain.Validation("Listing is not part of a listing group"))
	}
	if listing.OrgID == in.RequesterOrgID {
		return nil, fail(span, domain.Validation("Organizations cannot request their own listings"))
	}
	key := strings.TrimSpace(in.IdempotencyKey)

	var (
		req      *domain.PickupRequest
		mutation *listinggroups.Mutation
	)
	err = s.Coordinator.RetryOnConflict(ctx, func(ctx context.Context) error {
		req, mutation = nil, nil
		return s.Coordinator.WithGroup(ctx, *listing.GroupID, func(tx *gorm.DB, group *domain.ListingGroup) error {
			if key != "" {
				existing, err := findByIdempotencyKey(tx, in.RequesterID, key)
				if err != nil {
					return err
				}
				if existing != nil {
					if existing.SourceListingID != in.ListingID || existing.Quantity != in.Quantity {
						return domain.ErrIdempotencyConflict
					}
					req = existing
					return nil
				}
			}

			now := s.now()
			r := &domain.PickupRequest{
				RequestID:       uuid.New(),
				GroupID:         group.GroupID,
				SourceListingID: in.ListingID,
				RequesterID:     in.RequesterID,
				RequesterOrgID:  in.RequesterOrgID,
				GroceryOrgID:    group.OrgID,
				Quantity:        in.Quantity,
				PickupDate:      in.PickupDate,
				PickupTime:      in.PickupTime,
				Notes:           strings.TrimSpace(in.Notes),
				Status:          domain.PickupStatusPending,
				LastAction:      ActionCreate,
				Version:         1,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if key != "" {
				r.IdempotencyKey = &key
			}
			m, err := s.Groups.ReserveFromListing(tx, group, in.ListingID, r.RequestID, in.Quantity)
			if err != nil {
				return err
			}
			reserved, _ := m.Listing(r.RequestID)
			r.Listings = []domain.PickupRequestListing{{
				RequestID: r.RequestID,
				ListingID: reserved.ListingID,
				Quantity:  in.Quantity,
				CreatedAt: now,
			}}
			if err := tx.Create(r).Error; err != nil {
				return domain.Internal("create pickup request", err)
			}
			req, mutation = r, m
			return nil
		})
	})
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("pickup.id", req.RequestID.String()))
	if mutation == nil {
		span.AddEvent("idempotent_replay")
		return req, nil
	}

	s.announce(ctx, change{
		action:   ActionCreate,
		actorID:  in.RequesterID,
		after:    *req,
		mutation: mutation,
	})
	return req, nil
}

// Transition applies action to the request. Replaying the action that produced the current
// state returns the request unchanged.
//
// The ledger move, listing changes and request state commit together. Audit entries and
// events are written after the commit, outside the group lock; a failed audit write is
// logged and does not undo the transition.
func (s *Service) Transition(ctx context.Context, in TransitionInput) (*domain.PickupRequest, error) {
	ctx, span := s.tracer().Start(ctx, "pickups.transition", trace.WithAttributes(
		attribute.String("pickup.id", in.RequestID.String()),
		attribute.String("pickup.action", in.Action),
	))
	defer span.End()

	r, ok := transitions[in.Action]
	if !ok {
		return nil, fail(span, domain.Validation("Unknown action"))
	}
	current, err := s.Get(ctx, in.RequestID)
	if err != nil {
		return nil, fail(span, err)
	}

	var (
		c       change
		replay  bool
		summary domain.GroupSummary
	)
	err = s.Coordinator.RetryOnConflict(ctx, func(ctx context.Context) error {
		c, replay = change{action: in.Action, actorID: in.ActorID}, false
		return s.Coordinator.WithGroup(ctx, current.GroupID, func(tx *gorm.DB, group *domain.ListingGroup) error {
			req, err := loadRequest(tx, in.RequestID)
			if err != nil {
				return err
			}
			if err := r.authorize(req, in.ActorOrgID); err != nil {
				return err
			}
			if r.alreadyApplied(req, in.Action) {
				c.after, replay = *req, true
				return nil
			}
			if !r.allows(req.Status) {
				return domain.ErrInvalidTransition
			}

			before := *req
			now := s.now()
			switch r.effect {
			case effectRelease:
				if c.mutation, err = s.Groups.ReleaseToListing(tx, group, req.RequestID); err != nil {
					return err
				}
			case effectComplete:
				if c.mutation, err = s.Groups.CompleteListing(tx, group, req.RequestID); err != nil {
					return err
				}
				if c.item, err = inventory.CreateFromPickup(tx, req, *group, now); err != nil {
					return err
				}
			}

			r.stamp(req, now)
			req.Status = r.to
			req.LastAction = in.Action
			if proof := strings.TrimSpace(in.ProofOfPickupRef); proof != "" &&
				(in.Action == ActionMarkPickedUp || in.Action == ActionConfirmReceived) {
				req.ProofOfPickupRef = &proof
			}
			if err := saveRequest(tx, req, now); err != nil {
				return err
			}
			c.before, c.after = &before, *req
			summary = group.Summary()
			return nil
		})
	})
	if err != nil {
		return nil, fail(span, err)
	}
	if replay {
		span.AddEvent("idempotent_replay")
		return &c.after, nil
	}

	c.summary = &summary
	s.announce(ctx, c)
	return &c.after, nil
}

func (s *Service) Get(ctx context.Context, requestID uuid.UUID) (*domain.PickupRequest, error) {
	if requestID == uuid.Nil {
		return nil, domain.Validation("request_id is required")
	}
	return loadRequest(s.DB.WithContext(ctx), requestID)
}

// ListForOrg returns requests the organization made or received, newest first.
func (s *Service) ListForOrg(ctx context.Context, orgID uuid.UUID, status domain.PickupStatus) ([]domain.PickupRequest, error) {
	if orgID == uuid.Nil {
		return nil, domain.Validation("Organization not associated with user")
	}
	q := s.DB.WithContext(ctx).
		Preload("Listings").
		Where("(requester_org_id = ? OR grocery_org_id = ?)", orgID, orgID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var reqs []domain.PickupRequest
	if err := q.Order(`"createdAt" DESC`).Find(&reqs).Error; err != nil {
		return nil, domain.Internal("list pickup requests", err)
	}
	return reqs, nil
}

func loadRequest(db *gorm.DB, requestID uuid.UUID) (*domain.PickupRequest, error) {
	var req domain.PickupRequest
	if err := db.Preload("Listings").Where("request_id = ?", requestID).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPickupRequestNotFound
		}
		return nil, domain.Internal("load pickup request", err)
	}
	return &req, nil
}

func findByIdempotencyKey(tx *gorm.DB, requesterID uuid.UUID, key string) (*domain.PickupRequest, error) {
	var reqs []domain.PickupRequest
	if err := tx.Preload("Listings").
		Where("requester_id = ? AND idempotency_key = ?", requesterID, key).
		Limit(1).
		Find(&reqs).Error; err != nil {
		return nil, domain.Internal("load pickup request by idempotency key", err)
	}
	if len(reqs) == 0 {
		return nil, nil
	}
	return &reqs[0], nil
}

// saveRequest persists the lifecycle fields when the stored version still matches.
func saveRequest(tx *gorm.DB, req *domain.PickupRequest, now time.Time) error {
	res := tx.Model(&domain.PickupRequest{}).
		Where("request_id = ? AND version = ?", req.RequestID, req.Version).
		Updates(map[string]interface{}{
			"status":                req.Status,
			"last_action":           req.LastAction,
			"approved_at":           req.ApprovedAt,
			"rejected_at":           req.RejectedAt,
			"marked_ready_at":       req.MarkedReadyAt,
			"marked_picked_up_at":   req.MarkedPickedUpAt,
			"confirmed_received_at": req.ConfirmedReceivedAt,
			"cancelled_at":          req.CancelledAt,
			"proof_of_pickup_ref":   req.ProofOfPickupRef,
			"version":               req.Version + 1,
			"updatedAt":             now,
		})
	if res.Error != nil {
		return domain.Internal("save pickup request", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrConcurrencyConflict
	}
	req.Version++
	req.UpdatedAt = now
	return nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, domain.KindOf(err).String())
	return err
}
