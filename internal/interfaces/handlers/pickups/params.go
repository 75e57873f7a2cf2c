package pickups

import (
	"foodbridge-backend/internal/domain"

	"github.com/google/uuid"
)

func parseUUID(raw, field string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, domain.Validation(field + " is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Validation("Invalid " + field + " format")
	}
	return id, nil
}
