package inventory

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"foodbridge-backend/internal/application/audit"
	"foodbridge-backend/internal/application/inventory"
	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/middleware"
	"foodbridge-backend/internal/pkg/clock"
	"foodbridge-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupInventoryTest(t *testing.T) (*fiber.App, *inventory.Service) {
	db := testutil.NewDB(t)
	svc := &inventory.Service{
		DB:    db,
		Audit: &audit.Service{DB: db},
		Clock: clock.NewFixed(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)),
	}
	h := &Handlers{Service: svc}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{"user_id": uuid.NewString(), "org_id": c.Get("X-Org"), "role": "manager"})
		return c.Next()
	})
	app.Get("/inventory", h.List)
	app.Patch("/inventory/:item_id/distribute", h.Distribute)
	return app, svc
}

func seed(t *testing.T, svc *inventory.Service, orgID uuid.UUID) *domain.InventoryItem {
	t.Helper()
	req := &domain.PickupRequest{RequestID: uuid.New(), RequesterOrgID: orgID, Quantity: 3}
	item, err := inventory.CreateFromPickup(svc.DB, req, domain.ListingGroup{ProductName: "Rice", Category: "dry", Unit: "kg"}, time.Now())
	require.NoError(t, err)
	return item
}

func call(t *testing.T, app *fiber.App, method, path string, org uuid.UUID) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Org", org.String())
	resp, err := app.Test(req)
	require.NoError(t, err)
	var body map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func TestList_OwnOrgOnly(t *testing.T) {
	app, svc := setupInventoryTest(t)
	bank := uuid.New()
	seed(t, svc, bank)
	seed(t, svc, uuid.New())

	code, body := call(t, app, "GET", "/inventory", bank)
	require.Equal(t, 200, code)
	assert.Len(t, body["data"].([]interface{}), 1)

	code, _ = call(t, app, "GET", "/inventory?status=lost", bank)
	assert.Equal(t, 400, code)
}

func TestDistribute(t *testing.T) {
	app, svc := setupInventoryTest(t)
	bank := uuid.New()
	item := seed(t, svc, bank)
	path := "/inventory/" + item.ItemID.String() + "/distribute"

	code, _ := call(t, app, "PATCH", path, uuid.New())
	assert.Equal(t, 403, code)

	code, body := call(t, app, "PATCH", path, bank)
	require.Equal(t, 200, code)
	assert.Equal(t, "distributed", body["data"].(map[string]interface{})["status"])

	code, _ = call(t, app, "PATCH", path, bank)
	assert.Equal(t, 409, code)

	code, _ = call(t, app, "PATCH", "/inventory/"+uuid.NewString()+"/distribute", bank)
	assert.Equal(t, 404, code)
}
