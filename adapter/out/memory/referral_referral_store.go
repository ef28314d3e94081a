package memory

import (
	"context"
	"sort"
	"sync"

	"referral_server/core/domain"
	"referral_server/core/port/out"

	"github.com/google/uuid"
)

// ReferralStore is an in-memory out.ReferralRepository.
type ReferralStore struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*domain.Referral
}

var _ out.ReferralRepository = (*ReferralStore)(nil)

func NewReferralStore() *ReferralStore {
	return &ReferralStore{rows: make(map[uuid.UUID]*domain.Referral)}
}

func (s *ReferralStore) Create(ctx context.Context, referral *domain.Referral) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := *referral
	s.rows[referral.ID] = &c
	return nil
}

func (s *ReferralStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Referral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (s *ReferralStore) Update(ctx context.Context, referral *domain.Referral) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rows[referral.ID]
	if !ok {
		return out.ErrNotFound
	}
	existing.Title = referral.Title
	existing.Company = referral.Company
	existing.Description = referral.Description
	existing.Status = referral.Status
	existing.UpdatedAt = referral.UpdatedAt
	return nil
}

func (s *ReferralStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[id]; !ok {
		return out.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *ReferralStore) ListAll(ctx context.Context, page *domain.Page) ([]*domain.Referral, error) {
	return s.list(func(*domain.Referral) bool { return true }, page), nil
}

func (s *ReferralStore) ListByOwner(ctx context.Context, ownerID uuid.UUID, page *domain.Page) ([]*domain.Referral, error) {
	return s.list(func(r *domain.Referral) bool { return r.UserID == ownerID }, page), nil
}

func (s *ReferralStore) list(keep func(*domain.Referral) bool, page *domain.Page) []*domain.Referral {
	s.mu.RLock()
	result := make([]*domain.Referral, 0, len(s.rows))
	for _, r := range s.rows {
		if keep(r) {
			c := *r
			result = append(result, &c)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() > result[j].ID.String()
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return applyPage(result, page)
}

func applyPage(rows []*domain.Referral, page *domain.Page) []*domain.Referral {
	if page == nil {
		return rows
	}
	if page.Offset >= len(rows) {
		return []*domain.Referral{}
	}
	rows = rows[page.Offset:]
	if page.Limit > 0 && page.Limit < len(rows) {
		rows = rows[:page.Limit]
	}
	return rows
}
