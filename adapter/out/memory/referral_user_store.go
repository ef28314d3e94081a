// Package memory holds process-local stores used for development and tests.
// Nothing here survives a restart.
package memory

import (
	"context"
	"sync"

	"referral_server/core/domain"
	"referral_server/core/port/out"

	"github.com/google/uuid"
)

// UserStore is an in-memory out.UserRepository. The email index is updated
// under the same lock as the insert, so concurrent Creates for one email
// cannot both succeed.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*domain.User
	byEmail map[string]uuid.UUID
}

var _ out.UserRepository = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return cloneUser(s.byID[id]), nil
}

func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (s *UserStore) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[uuid.UUID]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.byID[id]; ok {
			result[id] = cloneUser(u)
		}
	}
	return result, nil
}

func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	email := domain.NormalizeEmail(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[email]; taken {
		return out.ErrDuplicateEmail
	}
	stored := cloneUser(user)
	stored.Email = email
	s.byID[user.ID] = stored
	s.byEmail[email] = user.ID
	return nil
}

func (s *UserStore) Save(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[user.ID]
	if !ok {
		return out.ErrNotFound
	}
	existing.Name = user.Name
	existing.Phone = user.Phone
	existing.Education = append([]domain.Education(nil), user.Education...)
	existing.Employment = append([]domain.Employment(nil), user.Employment...)
	existing.UpdatedAt = user.UpdatedAt
	return nil
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Education = append([]domain.Education{}, u.Education...)
	c.Employment = append([]domain.Employment{}, u.Employment...)
	return &c
}
