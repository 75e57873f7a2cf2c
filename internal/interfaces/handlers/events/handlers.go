package events

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"foodbridge-backend/internal/application/notifications"
	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/infrastructure/pubsub"
	"foodbridge-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keepAliveInterval = 25 * time.Second

var streamableEntities = map[string]bool{
	domain.EntityListingGroup:  true,
	domain.EntityListing:       true,
	domain.EntityPickupRequest: true,
	domain.EntityInventoryItem: true,
}

// RequestFinder loads a pickup request to check who may follow it.
type RequestFinder interface {
	Get(ctx context.Context, requestID uuid.UUID) (*domain.PickupRequest, error)
}

// ItemFinder loads an inventory item to check who may follow it.
type ItemFinder interface {
	Get(ctx context.Context, itemID uuid.UUID) (*domain.InventoryItem, error)
}

// Handlers streams room events to the browser as server-sent events.
type Handlers struct {
	Rooms    *pubsub.RedisPublisher
	Requests RequestFinder
	Items    ItemFinder
}

// GET /api/v1/events/stream?room=
func (h *Handlers) Stream(c *fiber.Ctx) error {
	room := c.Query("room")
	actor := middleware.GetActor(c)
	kind, id, err := authorizeRoom(room, actor)
	if err != nil {
		return err
	}
	if err := h.authorizeParty(c.UserContext(), kind, id, actor); err != nil {
		return err
	}
	if h.Rooms == nil || h.Rooms.Client == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Event stream unavailable")
	}

	// The stream outlives the handler, so the subscription is not tied to the request context.
	sub := h.Rooms.Subscribe(context.Background(), room)
	if _, err := sub.Receive(c.UserContext()); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", room, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	traceID := middleware.GetTraceID(c)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer sub.Close()
		log.Debug().Str("room", room).Str("trace_id", traceID).Msg("Event stream opened")
		if err := pump(w, sub.Channel(), keepAliveInterval); err != nil {
			log.Debug().Err(err).Str("room", room).Str("trace_id", traceID).Msg("Event stream closed")
		}
	})
	return nil
}

// pump copies messages to w until the channel closes or the client goes away.
func pump(w *bufio.Writer, msgs <-chan *redis.Message, keepAlive time.Duration) error {
	if err := writeFrame(w, "ready", "{}"); err != nil {
		return err
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := writeFrame(w, "event", msg.Payload); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

func writeFrame(w *bufio.Writer, event, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}

// authorizeRoom checks the room name and allows the browse room, entity rooms and the
// actor's own org room. Party-scoped entity rooms are checked by Handlers.authorizeParty.
func authorizeRoom(room string, actor middleware.Actor) (kind string, id uuid.UUID, err error) {
	if room == "" {
		return "", uuid.Nil, domain.Validation("room is required")
	}
	if room == notifications.BrowseRoom {
		return room, uuid.Nil, nil
	}
	kind, rawID, ok := strings.Cut(room, ":")
	if !ok {
		return "", uuid.Nil, domain.Validation("Unknown room")
	}
	id, err = uuid.Parse(rawID)
	if err != nil {
		return "", uuid.Nil, domain.Validation("Unknown room")
	}
	if kind == "org" {
		if actor.OrgID == uuid.Nil || id != actor.OrgID {
			return "", uuid.Nil, domain.ErrForbiddenActor
		}
		return kind, id, nil
	}
	if !streamableEntities[kind] {
		return "", uuid.Nil, domain.Validation("Unknown room")
	}
	return kind, id, nil
}

// authorizeParty hides pickup request and inventory rooms from organizations that
// could not read the entity itself. Outsiders get the entity's not-found error.
func (h *Handlers) authorizeParty(ctx context.Context, kind string, id uuid.UUID, actor middleware.Actor) error {
	switch kind {
	case domain.EntityPickupRequest:
		if h.Requests == nil {
			return domain.ErrPickupRequestNotFound
		}
		req, err := h.Requests.Get(ctx, id)
		if err != nil {
			return err
		}
		if actor.OrgID != req.RequesterOrgID && actor.OrgID != req.GroceryOrgID {
			return domain.ErrPickupRequestNotFound
		}
	case domain.EntityInventoryItem:
		if h.Items == nil {
			return domain.ErrInventoryItemNotFound
		}
		item, err := h.Items.Get(ctx, id)
		if err != nil {
			return err
		}
		if actor.OrgID != item.OrgID {
			return domain.ErrInventoryItemNotFound
		}
	}
	return nil
}
