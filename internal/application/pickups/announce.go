package pickups

import (
	"context"

	"foodbridge-backend/internal/application/audit"
	"foodbridge-backend/internal/application/listinggroups"
	"foodbridge-backend/internal/domain"

	"github.com/google/uuid"
)

// change is everything one committed lifecycle call produced.
type change struct {
	action   string
	actorID  uuid.UUID
	before   *domain.PickupRequest
	after    domain.PickupRequest
	mutation *listinggroups.Mutation
	item     *domain.InventoryItem
	summary  *domain.GroupSummary
}

// announce appends the audit trail and then fans out events, request first.
func (s *Service) announce(ctx context.Context, c change) {
	req := c.after
	now := s.now()

	var before interface{}
	if c.before != nil {
		before = *c.before
	}
	entries := []audit.Entry{{
		ActorID:    c.actorID,
		Action:     c.action,
		EntityType: domain.EntityPickupRequest,
		EntityID:   req.RequestID,
		Before:     before,
		After:      req,
	}}
	summary := c.summary
	if c.mutation != nil {
		entries = append(entries, c.mutation.AuditEntries(c.actorID)...)
		ms := c.mutation.Summary()
		summary = &ms
	}
	if c.item != nil {
		entries = append(entries, audit.Entry{
			ActorID:    c.actorID,
			Action:     c.action,
			EntityType: domain.EntityInventoryItem,
			EntityID:   c.item.ItemID,
			After:      *c.item,
		})
	}
	s.Audit.Record(ctx, entries...)

	if s.Notifier == nil {
		return
	}
	groupID := req.GroupID
	events := []domain.Event{{
		EntityType: domain.EntityPickupRequest,
		EntityID:   req.RequestID,
		GroupID:    &groupID,
		ActorID:    c.actorID,
		Operation:  c.action,
		NewState:   string(req.Status),
		Quantities: summary,
		OrgIDs:     []uuid.UUID{req.RequesterOrgID, req.GroceryOrgID},
		Timestamp:  now,
	}}
	if c.mutation != nil {
		events = append(events, c.mutation.Events(c.actorID, now, req.RequesterOrgID)...)
	}
	if c.item != nil {
		events = append(events, domain.Event{
			EntityType: domain.EntityInventoryItem,
			EntityID:   c.item.ItemID,
			GroupID:    &groupID,
			ActorID:    c.actorID,
			Operation:  c.action,
			NewState:   string(c.item.Status),
			OrgIDs:     []uuid.UUID{c.item.OrgID},
			Timestamp:  now,
		})
	}
	s.Notifier.Notify(context.WithoutCancel(ctx), events...)
}
