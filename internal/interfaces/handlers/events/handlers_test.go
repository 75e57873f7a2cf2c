package events

import (
	"bufio"
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/infrastructure/pubsub"
	"foodbridge-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeRoom(t *testing.T) {
	own := uuid.New()
	actor := middleware.Actor{UserID: uuid.New(), OrgID: own}
	cases := []struct {
		room string
		want error
	}{
		{"listings:browse", nil},
		{"org:" + own.String(), nil},
		{"pickup_request:" + uuid.NewString(), nil},
		{"listing_group:" + uuid.NewString(), nil},
		{"org:" + uuid.NewString(), domain.ErrForbiddenActor},
		{"", domain.ErrValidation},
		{"lobby", domain.ErrValidation},
		{"spaceship:" + uuid.NewString(), domain.ErrValidation},
		{"listing:not-a-uuid", domain.ErrValidation},
	}
	for _, tc := range cases {
		_, _, err := authorizeRoom(tc.room, actor)
		if tc.want == nil {
			assert.NoError(t, err, tc.room)
		} else {
			assert.ErrorIs(t, err, tc.want, tc.room)
		}
	}
}

func TestPump_WritesFramesUntilChannelCloses(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	msgs := make(chan *redis.Message, 2)
	msgs <- &redis.Message{Channel: "rooms:listings:browse", Payload: `{"operation":"publish"}`}
	close(msgs)

	require.NoError(t, pump(w, msgs, time.Hour))
	out := buf.String()
	assert.Contains(t, out, "event: ready\ndata: {}\n\n")
	assert.Contains(t, out, "event: event\ndata: {\"operation\":\"publish\"}\n\n")
}

func TestStream_RejectsBadRooms(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	h := &Handlers{Rooms: &pubsub.RedisPublisher{Client: rdb}}

	orgID := uuid.New()
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{"user_id": uuid.NewString(), "org_id": orgID.String(), "role": "viewer"})
		return c.Next()
	})
	app.Get("/events/stream", h.Stream)

	resp, err := app.Test(httptest.NewRequest("GET", "/events/stream", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/events/stream?room=org:"+uuid.NewString(), nil))
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestStream_Unavailable(t *testing.T) {
	h := &Handlers{}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Get("/events/stream", h.Stream)

	resp, err := app.Test(httptest.NewRequest("GET", "/events/stream?room=listings:browse", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

type requestStub map[uuid.UUID]*domain.PickupRequest

func (r requestStub) Get(_ context.Context, id uuid.UUID) (*domain.PickupRequest, error) {
	if req, ok := r[id]; ok {
		return req, nil
	}
	return nil, domain.ErrPickupRequestNotFound
}

type itemStub map[uuid.UUID]*domain.InventoryItem

func (s itemStub) Get(_ context.Context, id uuid.UUID) (*domain.InventoryItem, error) {
	if item, ok := s[id]; ok {
		return item, nil
	}
	return nil, domain.ErrInventoryItemNotFound
}

func TestStream_PartyScopedRooms(t *testing.T) {
	donor, bank, outsider := uuid.New(), uuid.New(), uuid.New()
	req := &domain.PickupRequest{RequestID: uuid.New(), GroceryOrgID: donor, RequesterOrgID: bank}
	item := &domain.InventoryItem{ItemID: uuid.New(), OrgID: bank}

	// Rooms is left nil: a request that passes authorization stops at 503.
	h := &Handlers{
		Requests: requestStub{req.RequestID: req},
		Items:    itemStub{item.ItemID: item},
	}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{"user_id": uuid.NewString(), "org_id": c.Get("X-Org"), "role": "viewer"})
		return c.Next()
	})
	app.Get("/events/stream", h.Stream)

	stream := func(org uuid.UUID, room string) int {
		r := httptest.NewRequest("GET", "/events/stream?room="+room, nil)
		r.Header.Set("X-Org", org.String())
		resp, err := app.Test(r)
		require.NoError(t, err)
		return resp.StatusCode
	}

	pickupRoom := domain.EntityPickupRequest + ":" + req.RequestID.String()
	assert.Equal(t, 503, stream(donor, pickupRoom))
	assert.Equal(t, 503, stream(bank, pickupRoom))
	assert.Equal(t, 404, stream(outsider, pickupRoom))
	assert.Equal(t, 404, stream(bank, domain.EntityPickupRequest+":"+uuid.NewString()))

	itemRoom := domain.EntityInventoryItem + ":" + item.ItemID.String()
	assert.Equal(t, 503, stream(bank, itemRoom))
	assert.Equal(t, 404, stream(donor, itemRoom))

	assert.Equal(t, 503, stream(outsider, domain.EntityListing+":"+uuid.NewString()))
}
