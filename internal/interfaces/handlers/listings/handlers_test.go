package listings

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"foodbridge-backend/internal/application/audit"
	"foodbridge-backend/internal/application/coordinator"
	"foodbridge-backend/internal/application/listinggroups"
	"foodbridge-backend/internal/infrastructure/locking"
	"foodbridge-backend/internal/middleware"
	"foodbridge-backend/internal/pkg/clock"
	"foodbridge-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type env struct {
	app   *fiber.App
	donor uuid.UUID
	other uuid.UUID
}

// setupListingsTest mounts the handlers behind a fake session; the X-Org header picks the acting org.
func setupListingsTest(t *testing.T) *env {
	db := testutil.NewDB(t)
	svc := &listinggroups.Service{
		DB:          db,
		Coordinator: coordinator.New(db, locking.NewLocal()),
		Audit:       &audit.Service{DB: db},
		Clock:       clock.NewFixed(testNow),
	}
	h := &Handlers{Service: svc}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": uuid.NewString(),
			"org_id":  c.Get("X-Org"),
			"role":    "manager",
		})
		return c.Next()
	})
	app.Post("/listings/publish", h.Publish)
	app.Get("/listings/browse", h.Browse)
	app.Get("/listings/:listing_id", h.Get)
	app.Post("/listings/:listing_id/split", h.Split)
	app.Post("/listings/:listing_id/expire", h.Expire)
	app.Get("/listing-groups/:group_id/summary", h.GroupSummary)
	app.Get("/listing-groups/:group_id/listings", h.GroupListings)
	return &env{app: app, donor: uuid.New(), other: uuid.New()}
}

func (e *env) do(t *testing.T, method, path string, org uuid.UUID, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Org", org.String())
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (e *env) publish(t *testing.T, quantity int) (groupID, listingID string) {
	t.Helper()
	code, body := e.do(t, "POST", "/listings/publish", e.donor, map[string]interface{}{
		"product_name": "Apples",
		"category":     "produce",
		"unit":         "kg",
		"quantity":     quantity,
	})
	require.Equal(t, 201, code, body)
	data := body["data"].(map[string]interface{})
	group := data["group"].(map[string]interface{})
	listing := data["listing"].(map[string]interface{})
	return group["group_id"].(string), listing["listing_id"].(string)
}

func TestPublish_CreatesGroupAndListing(t *testing.T) {
	e := setupListingsTest(t)
	groupID, listingID := e.publish(t, 12)

	code, body := e.do(t, "GET", "/listing-groups/"+groupID+"/summary", e.donor, nil)
	require.Equal(t, 200, code)
	summary := body["data"].(map[string]interface{})
	assert.EqualValues(t, 12, summary["original_quantity"])
	assert.EqualValues(t, 12, summary["total_available"])

	code, body = e.do(t, "GET", "/listings/"+listingID, e.other, nil)
	require.Equal(t, 200, code)
	assert.Equal(t, "open", body["data"].(map[string]interface{})["status"])
}

func TestPublish_ValidationError(t *testing.T) {
	e := setupListingsTest(t)
	code, body := e.do(t, "POST", "/listings/publish", e.donor, map[string]interface{}{
		"product_name": "Apples",
		"category":     "produce",
		"unit":         "kg",
		"quantity":     0,
	})
	assert.Equal(t, 400, code)
	assert.Equal(t, "error", body["status"])
}

func TestGet_InvalidAndUnknownID(t *testing.T) {
	e := setupListingsTest(t)
	code, _ := e.do(t, "GET", "/listings/not-a-uuid", e.donor, nil)
	assert.Equal(t, 400, code)

	code, body := e.do(t, "GET", "/listings/"+uuid.NewString(), e.donor, nil)
	assert.Equal(t, 404, code)
	detail := body["error"].(map[string]interface{})
	assert.Equal(t, "Listing not found", detail["message"])
}

func TestSplit_AndGroupListings(t *testing.T) {
	e := setupListingsTest(t)
	groupID, listingID := e.publish(t, 10)

	code, body := e.do(t, "POST", "/listings/"+listingID+"/split", e.donor, map[string]interface{}{"portions": []int{4, 6}})
	require.Equal(t, 201, code, body)
	assert.Len(t, body["data"].([]interface{}), 2)

	code, body = e.do(t, "GET", "/listing-groups/"+groupID+"/listings", e.donor, nil)
	require.Equal(t, 200, code)
	assert.Len(t, body["data"].([]interface{}), 2)
	assert.EqualValues(t, 2, body["metadata"].(map[string]interface{})["count"])
}

func TestSplit_ForeignOrgForbidden(t *testing.T) {
	e := setupListingsTest(t)
	_, listingID := e.publish(t, 10)

	code, _ := e.do(t, "POST", "/listings/"+listingID+"/split", e.other, map[string]interface{}{"portions": []int{5, 5}})
	assert.Equal(t, 403, code)
}

func TestExpire_RemovesFromBrowse(t *testing.T) {
	e := setupListingsTest(t)
	_, listingID := e.publish(t, 3)

	code, body := e.do(t, "GET", "/listings/browse?category=produce", e.other, nil)
	require.Equal(t, 200, code)
	assert.Len(t, body["data"].([]interface{}), 1)

	code, body = e.do(t, "POST", "/listings/"+listingID+"/expire", e.donor, nil)
	require.Equal(t, 200, code)
	assert.Equal(t, "expired", body["data"].(map[string]interface{})["status"])

	code, body = e.do(t, "GET", "/listings/browse", e.other, nil)
	require.Equal(t, 200, code)
	assert.Empty(t, body["data"])

	code, _ = e.do(t, "POST", "/listings/"+listingID+"/expire", e.donor, nil)
	assert.Equal(t, 400, code)
}

func TestGroupSummary_NotFound(t *testing.T) {
	e := setupListingsTest(t)
	code, _ := e.do(t, "GET", "/listing-groups/"+uuid.NewString()+"/summary", e.donor, nil)
	assert.Equal(t, 404, code)
}

func TestGroupListings_UnknownGroup(t *testing.T) {
	e := setupListingsTest(t)
	code, body := e.do(t, "GET", "/listing-groups/"+uuid.NewString()+"/listings", e.donor, nil)
	assert.Equal(t, 404, code)
	assert.Equal(t, "Listing group not found", body["error"].(map[string]interface{})["message"])
}
