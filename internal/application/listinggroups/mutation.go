package listinggroups

import (
	"time"

	"foodbridge-backend/internal/application/audit"
	"foodbridge-backend/internal/domain"

	"github.com/google/uuid"
)

// Operation names used in events and audit entries.
const (
	OpPublish  = "publish"
	OpReserve  = "reserve"
	OpRelease  = "release"
	OpComplete = "complete"
	OpSplit    = "split"
	OpExpire   = "expire"
)

// ListingChange is one listing row touched by a mutation. Before is nil for new rows.
type ListingChange struct {
	Before *domain.ClearanceListing
	After  domain.ClearanceListing
}

// Mutation is the committed result of one ledger/listing operation. The caller turns it
// into events and audit entries after the critical section has ended.
type Mutation struct {
	Operation   string
	GroupBefore domain.ListingGroup
	Group       domain.ListingGroup
	Listings    []ListingChange
}

// Summary is the group's ledger after the mutation.
func (m *Mutation) Summary() domain.GroupSummary {
	return m.Group.Summary()
}

// Listing returns the first listing that is linked to requestID after the mutation.
func (m *Mutation) Listing(requestID uuid.UUID) (domain.ClearanceListing, bool) {
	for _, c := range m.Listings {
		if c.After.PickupRequestID != nil && *c.After.PickupRequestID == requestID {
			return c.After, true
		}
	}
	return domain.ClearanceListing{}, false
}

// groupChanged is false for listing-only operations such as split and expire.
func (m *Mutation) groupChanged() bool {
	if m.Group.GroupID == uuid.Nil {
		return false
	}
	return m.Operation == OpPublish || m.GroupBefore.Version != m.Group.Version
}

// Events builds the group event (when the ledger moved) followed by one event per touched
// listing. The owning organization always receives them; orgIDs adds further user rooms.
func (m *Mutation) Events(actorID uuid.UUID, at time.Time, orgIDs ...uuid.UUID) []domain.Event {
	var (
		summary *domain.GroupSummary
		groupID *uuid.UUID
		events  []domain.Event
	)
	owner := m.Group.OrgID
	if m.Group.GroupID != uuid.Nil {
		s := m.Summary()
		id := m.Group.GroupID
		summary, groupID = &s, &id
	} else if len(m.Listings) > 0 {
		owner = m.Listings[0].After.OrgID
	}
	orgs := append([]uuid.UUID{owner}, orgIDs...)

	if m.groupChanged() {
		groupState := "active"
		if m.Group.IsFullyConsumed {
			groupState = "fully_consumed"
		}
		events = append(events, domain.Event{
			EntityType: domain.EntityListingGroup,
			EntityID:   m.Group.GroupID,
			GroupID:    groupID,
			ActorID:    actorID,
			Operation:  m.Operation,
			NewState:   groupState,
			Quantities: summary,
			OrgIDs:     orgs,
			Timestamp:  at,
		})
	}
	for _, c := range m.Listings {
		listingID := c.After.ListingID
		events = append(events, domain.Event{
			EntityType: domain.EntityListing,
			EntityID:   listingID,
			GroupID:    groupID,
			ListingID:  &listingID,
			ActorID:    actorID,
			Operation:  m.Operation,
			NewState:   string(c.After.Status),
			Quantities: summary,
			OrgIDs:     orgs,
			Timestamp:  at,
		})
	}
	return events
}

// AuditEntries records the group's ledger (when it moved) and every touched listing.
func (m *Mutation) AuditEntries(actorID uuid.UUID) []audit.Entry {
	var entries []audit.Entry
	if m.groupChanged() {
		var groupBefore interface{}
		if m.Operation != OpPublish {
			groupBefore = m.GroupBefore.Summary()
		}
		entries = append(entries, audit.Entry{
			ActorID:    actorID,
			Action:     m.Operation,
			EntityType: domain.EntityListingGroup,
			EntityID:   m.Group.GroupID,
			Before:     groupBefore,
			After:      m.Summary(),
		})
	}
	for _, c := range m.Listings {
		var before interface{}
		if c.Before != nil {
			before = *c.Before
		}
		entries = append(entries, audit.Entry{
			ActorID:    actorID,
			Action:     m.Operation,
			EntityType: domain.EntityListing,
			EntityID:   c.After.ListingID,
			Before:     before,
			After:      c.After,
		})
	}
	return entries
}
