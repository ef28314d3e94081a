package in

import (
	"context"

	"referral_server/core/domain"

	"github.com/google/uuid"
)

// ProfileUpdateRequest carries the mutable profile fields. Nil or empty
// values leave the stored value untouched; an empty list clears a list.
type ProfileUpdateRequest struct {
	Name       *string              `json:"name"`
	Phone      *string              `json:"phone"`
	Education  *[]domain.Education  `json:"education"`
	Employment *[]domain.Employment `json:"employment"`
}

type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	Upsert(ctx context.Context, userID uuid.UUID, req *ProfileUpdateRequest) (*domain.User, error)
}
