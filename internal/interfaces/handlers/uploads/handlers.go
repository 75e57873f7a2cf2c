package uploads

import (
	"context"

	uploadsvc "foodbridge-backend/internal/application/uploads"
	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/middleware"
	"foodbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RequestFinder loads the pickup request a proof belongs to.
type RequestFinder interface {
	Get(ctx context.Context, requestID uuid.UUID) (*domain.PickupRequest, error)
}

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service  *uploadsvc.Service
	Requests RequestFinder
}

type proofUploadRequest struct {
	RequestID string `json:"request_id"`
	FileName  string `json:"file_name"`
}

// PickupProof POST /api/v1/uploads/pickup-proof
func (h *Handlers) PickupProof(c *fiber.Ctx) error {
	var req proofUploadRequest
	if err := c.BodyParser(&req); err != nil || req.FileName == "" {
		return response.Error(c, "file_name is required", fiber.StatusBadRequest, nil)
	}
	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		return response.Error(c, "Invalid request_id format", fiber.StatusBadRequest, nil)
	}
	pr, err := h.Requests.Get(c.UserContext(), requestID)
	if err != nil {
		return err
	}
	actor := middleware.GetActor(c)
	if actor.OrgID != pr.RequesterOrgID && actor.OrgID != pr.GroceryOrgID {
		return domain.ErrPickupRequestNotFound
	}

	res, err := h.Service.SignPickupProof(c.UserContext(), requestID, req.FileName)
	if err != nil {
		if domain.KindOf(err) == domain.KindValidation {
			return err
		}
		log.Error().Err(err).Str("bucket", uploadsvc.ProofBucket).Str("trace_id", middleware.GetTraceID(c)).
			Msg("upload: failed to generate signed URL")
		return response.Error(c, "Failed to generate upload URL", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}
