package in

import (
	"context"

	"referral_server/core/domain"

	"github.com/google/uuid"
)

type CreateReferralRequest struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// UpdateReferralRequest merges non-empty fields into the stored referral.
type UpdateReferralRequest struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type ReferralService interface {
	Create(ctx context.Context, ownerID uuid.UUID, req *CreateReferralRequest) (*domain.Referral, error)

	// ListPublic is the feed: every referral with its owner's name and email.
	ListPublic(ctx context.Context, page *domain.Page) ([]domain.FeedReferral, error)

	// ListByOwner is the dashboard: the requester's own referrals.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, page *domain.Page) ([]*domain.Referral, error)

	// Update and Delete are owner-only.
	Update(ctx context.Context, requesterID, id uuid.UUID, req *UpdateReferralRequest) (*domain.Referral, error)
	Delete(ctx context.Context, requesterID, id uuid.UUID) error
}
