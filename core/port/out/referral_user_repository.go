package out

import (
	"context"
	"errors"

	"referral_server/core/domain"

	"github.com/google/uuid"
)

// ErrDuplicateEmail is returned by UserRepository.Create when the storage
// uniqueness constraint on email rejects the insert. It is the authoritative
// duplicate signal; any pre-check done by callers is only a fast path.
var ErrDuplicateEmail = errors.New("duplicate email")

// UserRepository defines the outbound port for user persistence.
type UserRepository interface {
	// FindByEmail returns nil, nil when no user has the email.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindByID returns nil, nil when the user does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// FindByIDs returns the users that exist among ids, keyed by id.
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.User, error)

	// Create inserts a new user.
	Create(ctx context.Context, user *domain.User) error

	// Save persists name, phone, education and employment.
	Save(ctx context.Context, user *domain.User) error
}
