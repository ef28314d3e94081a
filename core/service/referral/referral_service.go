package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"referral_server/core/domain"
	"referral_server/core/port/in"
	"referral_server/core/port/out"
	"referral_server/core/service/auth"
	"referral_server/core/service/common"
	"referral_server/pkg/apperr"
	"referral_server/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const resourceName = "Referral"

// Service implements in.ReferralService.
type Service struct {
	referrals    out.ReferralRepository
	users        out.UserRepository
	writeTimeout time.Duration

	feedFlight singleflight.Group
	// feedGen advances after every committed write; feed loads are keyed on
	// it so a read issued after a write never joins a load started before it.
	feedGen atomic.Uint64
}

var _ in.ReferralService = (*Service)(nil)

func NewService(referrals out.ReferralRepository, users out.UserRepository, writeTimeout time.Duration) *Service {
	return &Service{
		referrals:    referrals,
		users:        users,
		writeTimeout: writeTimeout,
	}
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req *in.CreateReferralRequest) (*domain.Referral, error) {
	if ownerID == uuid.Nil {
		return nil, apperr.Unauthorized("")
	}
	if req == nil {
		return nil, requiredFieldsErr()
	}

	title := strings.TrimSpace(req.Title)
	company := strings.TrimSpace(req.Company)
	description := strings.TrimSpace(req.Description)
	if title == "" || company == "" || description == "" {
		return nil, requiredFieldsErr()
	}

	status := domain.ReferralStatusPending
	if v := strings.TrimSpace(req.Status); v != "" {
		status = domain.ReferralStatus(v)
		if !status.IsValid() {
			return nil, invalidStatusErr()
		}
	}

	now := time.Now().UTC()
	r := &domain.Referral{
		ID:          uuid.New(),
		UserID:      ownerID,
		Title:       title,
		Company:     company,
		Description: description,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	writeCtx, cancel := common.DetachedWrite(ctx, s.writeTimeout)
	defer cancel()
	if err := s.referrals.Create(writeCtx, r); err != nil {
		return nil, apperr.Internal("create referral", err)
	}
	s.feedGen.Add(1)

	logger.WithFields(map[string]any{
		"referral_id": r.ID.String(),
		"user_id":     ownerID.String(),
	}).Info("referral created")
	return r, nil
}

// ListPublic returns the feed. Identical concurrent reads share one store
// round trip. The shared load is detached from any single caller, so one
// client hanging up does not fail the others waiting on it.
func (s *Service) ListPublic(ctx context.Context, page *domain.Page) ([]domain.FeedReferral, error) {
	key := fmt.Sprintf("%d:all", s.feedGen.Load())
	if page != nil {
		key = fmt.Sprintf("%d:%d:%d", s.feedGen.Load(), page.Offset, page.Limit)
	}

	ch := s.feedFlight.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := common.Detached(ctx, s.writeTimeout)
		defer cancel()
		return s.loadFeed(loadCtx, page)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]domain.FeedReferral)
		feed := make([]domain.FeedReferral, len(shared))
		copy(feed, shared)
		return feed, nil
	}
}

func (s *Service) loadFeed(ctx context.Context, page *domain.Page) ([]domain.FeedReferral, error) {
	rows, err := s.referrals.ListAll(ctx, page)
	if err != nil {
		return nil, apperr.Internal("list referrals", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(rows))
	ownerIDs := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}
		ownerIDs = append(ownerIDs, r.UserID)
	}

	owners := map[uuid.UUID]*domain.User{}
	if len(ownerIDs) > 0 {
		owners, err = s.users.FindByIDs(ctx, ownerIDs)
		if err != nil {
			return nil, apperr.Internal("load referral owners", err)
		}
	}

	feed := make([]domain.FeedReferral, 0, len(rows))
	for _, r := range rows {
		feed = append(feed, r.ToFeed(owners[r.UserID]))
	}
	return feed, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID, page *domain.Page) ([]*domain.Referral, error) {
	rows, err := s.referrals.ListByOwner(ctx, ownerID, page)
	if err != nil {
		return nil, apperr.Internal("list own referrals", err)
	}
	if rows == nil {
		rows = []*domain.Referral{}
	}
	return rows, nil
}

func (s *Service) Update(ctx context.Context, requesterID, id uuid.UUID, req *in.UpdateReferralRequest) (*domain.Referral, error) {
	r, err := s.loadForMutation(ctx, requesterID, id)
	if err != nil {
		return nil, err
	}

	if req != nil {
		if v := strings.TrimSpace(req.Title); v != "" {
			r.Title = v
		}
		if v := strings.TrimSpace(req.Company); v != "" {
			r.Company = v
		}
		if v := strings.TrimSpace(req.Description); v != "" {
			r.Description = v
		}
		if v := strings.TrimSpace(req.Status); v != "" {
			status := domain.ReferralStatus(v)
			if !status.IsValid() {
				return nil, invalidStatusErr()
			}
			r.Status = status
		}
	}
	r.UpdatedAt = time.Now().UTC()

	writeCtx, cancel := common.DetachedWrite(ctx, s.writeTimeout)
	defer cancel()
	if err := s.referrals.Update(writeCtx, r); err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return nil, apperr.NotFound(resourceName)
		}
		return nil, apperr.Internal("update referral", err)
	}
	s.feedGen.Add(1)
	return r, nil
}

func (s *Service) Delete(ctx context.Context, requesterID, id uuid.UUID) error {
	if _, err := s.loadForMutation(ctx, requesterID, id); err != nil {
		return err
	}

	writeCtx, cancel := common.DetachedWrite(ctx, s.writeTimeout)
	defer cancel()
	if err := s.referrals.Delete(writeCtx, id); err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return apperr.NotFound(resourceName)
		}
		return apperr.Internal("delete referral", err)
	}
	s.feedGen.Add(1)

	logger.WithFields(map[string]any{
		"referral_id": id.String(),
		"user_id":     requesterID.String(),
	}).Info("referral deleted")
	return nil
}

// loadForMutation reports NotFound before Forbidden, so a non-owner probing
// a missing id learns nothing more than the owner would.
func (s *Service) loadForMutation(ctx context.Context, requesterID, id uuid.UUID) (*domain.Referral, error) {
	r, err := s.referrals.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("get referral", err)
	}
	if r == nil {
		return nil, apperr.NotFound(resourceName)
	}

	decision := auth.AuthorizeMutation(r.UserID, requesterID)
	if err := decision.Err(); err != nil {
		logger.WithFields(map[string]any{
			"referral_id": id.String(),
			"user_id":     requesterID.String(),
		}).Warn("referral mutation %s", decision)
		return nil, err
	}
	return r, nil
}

func requiredFieldsErr() error {
	return apperr.ValidationFailed("Title, company, and description are required")
}

func invalidStatusErr() error {
	values := make([]string, 0, 3)
	for _, st := range domain.ReferralStatuses() {
		values = append(values, string(st))
	}
	return apperr.InvalidInput("status", "must be one of "+strings.Join(values, ", "))
}
