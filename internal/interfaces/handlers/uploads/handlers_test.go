package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	uploadsvc "foodbridge-backend/internal/application/uploads"
	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	lastBucket string
	err        error
}

func (f *fakeClient) CreateSignedUploadURL(_ context.Context, bucket, _ string) (string, error) {
	f.lastBucket = bucket
	if f.err != nil {
		return "", f.err
	}
	return "https://example.com/upload", nil
}

type fakeRequests map[uuid.UUID]*domain.PickupRequest

func (f fakeRequests) Get(_ context.Context, id uuid.UUID) (*domain.PickupRequest, error) {
	if pr, ok := f[id]; ok {
		return pr, nil
	}
	return nil, domain.ErrPickupRequestNotFound
}

type uploadEnv struct {
	app     *fiber.App
	client  *fakeClient
	request *domain.PickupRequest
}

func setupUploadTest(t *testing.T) *uploadEnv {
	client := &fakeClient{}
	pr := &domain.PickupRequest{RequestID: uuid.New(), RequesterOrgID: uuid.New(), GroceryOrgID: uuid.New()}
	h := &Handlers{
		Service:  &uploadsvc.Service{Client: client, SupabaseURL: "https://example.supabase.co"},
		Requests: fakeRequests{pr.RequestID: pr},
	}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{"user_id": uuid.NewString(), "org_id": c.Get("X-Org"), "role": "manager"})
		return c.Next()
	})
	app.Post("/api/v1/uploads/pickup-proof", h.PickupProof)
	return &uploadEnv{app: app, client: client, request: pr}
}

func (e *uploadEnv) post(t *testing.T, org uuid.UUID, body map[string]string) int {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/v1/uploads/pickup-proof", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Org", org.String())
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestPickupProof_MissingFileName(t *testing.T) {
	e := setupUploadTest(t)
	code := e.post(t, e.request.RequesterOrgID, map[string]string{"request_id": e.request.RequestID.String()})
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestPickupProof_Success(t *testing.T) {
	e := setupUploadTest(t)
	code := e.post(t, e.request.GroceryOrgID, map[string]string{"request_id": e.request.RequestID.String(), "file_name": "crate.jpg"})
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, uploadsvc.ProofBucket, e.client.lastBucket)
}

func TestPickupProof_NonPartyOrUnknownRequest(t *testing.T) {
	e := setupUploadTest(t)
	code := e.post(t, uuid.New(), map[string]string{"request_id": e.request.RequestID.String(), "file_name": "crate.jpg"})
	assert.Equal(t, fiber.StatusNotFound, code)

	code = e.post(t, e.request.RequesterOrgID, map[string]string{"request_id": uuid.NewString(), "file_name": "crate.jpg"})
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestPickupProof_StorageFailure(t *testing.T) {
	e := setupUploadTest(t)
	e.client.err = errors.New("storage down")
	code := e.post(t, e.request.RequesterOrgID, map[string]string{"request_id": e.request.RequestID.String(), "file_name": "crate.jpg"})
	assert.Equal(t, fiber.StatusInternalServerError, code)
}
