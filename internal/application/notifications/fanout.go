package notifications

import (
	"context"

	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/infrastructure/pubsub"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// BrowseRoom receives every listing and group change for the public browse view.
const BrowseRoom = "listings:browse"

// Notifier is what the engine depends on to announce committed state changes.
type Notifier interface {
	Notify(ctx context.Context, events ...domain.Event)
}

// EntityRoom is the room of a single entity, e.g. "pickup_request:<id>".
func EntityRoom(entityType string, id uuid.UUID) string {
	return entityType + ":" + id.String()
}

// OrgRoom is the user-scoped room shared by an organization's members.
func OrgRoom(orgID uuid.UUID) string {
	return "org:" + orgID.String()
}

// Topics lists the rooms ev is delivered to: the entity room, one room per
// interested organization, and the browse room for listing-level changes.
func Topics(ev domain.Event) []string {
	topics := []string{EntityRoom(ev.EntityType, ev.EntityID)}
	seen := make(map[uuid.UUID]bool, len(ev.OrgIDs))
	for _, orgID := range ev.OrgIDs {
		if orgID == uuid.Nil || seen[orgID] {
			continue
		}
		seen[orgID] = true
		topics = append(topics, OrgRoom(orgID))
	}
	if ev.EntityType == domain.EntityListing || ev.EntityType == domain.EntityListingGroup {
		topics = append(topics, BrowseRoom)
	}
	return topics
}

// Fanout publishes each event to every room on every configured sink.
// Sinks run in parallel; a failing sink is logged and does not stop the others.
type Fanout struct {
	Publishers []pubsub.Publisher
}

func (f *Fanout) Notify(ctx context.Context, events ...domain.Event) {
	if f == nil || len(f.Publishers) == 0 {
		return
	}
	var g errgroup.Group
	for _, p := range f.Publishers {
		p := p
		g.Go(func() error {
			for _, ev := range events {
				for _, topic := range Topics(ev) {
					if err := p.Publish(ctx, topic, ev); err != nil {
						log.Warn().Err(err).
							Str("topic", topic).
							Str("entity_type", ev.EntityType).
							Str("entity_id", ev.EntityID.String()).
							Msg("Event publish failed")
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}
