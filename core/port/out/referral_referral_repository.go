package out

import (
	"context"
	"errors"

	"referral_server/core/domain"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Update and Delete when the row is already gone.
var ErrNotFound = errors.New("not found")

// ReferralRepository defines the outbound port for referral persistence.
// List methods return newest first.
type ReferralRepository interface {
	Create(ctx context.Context, referral *domain.Referral) error

	// GetByID returns nil, nil when the referral does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Referral, error)

	// Update persists title, company, description, status and updated_at.
	// The owner is never rewritten.
	Update(ctx context.Context, referral *domain.Referral) error

	Delete(ctx context.Context, id uuid.UUID) error

	ListAll(ctx context.Context, page *domain.Page) ([]*domain.Referral, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, page *domain.Page) ([]*domain.Referral, error)
}
