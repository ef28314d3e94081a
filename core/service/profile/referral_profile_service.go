package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"referral_server/core/domain"
	"referral_server/core/port/in"
	"referral_server/core/port/out"
	"referral_server/core/service/common"
	"referral_server/pkg/apperr"
	"referral_server/pkg/logger"

	"github.com/google/uuid"
)

// Service implements in.ProfileService on top of the user store. The profile
// lives on the user record; there is no separate profile row.
type Service struct {
	users        out.UserRepository
	writeTimeout time.Duration
}

var _ in.ProfileService = (*Service)(nil)

func NewService(users out.UserRepository, writeTimeout time.Duration) *Service {
	return &Service{users: users, writeTimeout: writeTimeout}
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("find user", err)
	}
	if user == nil {
		return nil, apperr.NotFound("User")
	}
	return user, nil
}

// Upsert merges req into the stored profile. Nil or blank scalars keep the
// stored value; a non-nil list replaces the stored list, so [] clears it.
func (s *Service) Upsert(ctx context.Context, userID uuid.UUID, req *in.ProfileUpdateRequest) (*domain.User, error) {
	if err := validateProfile(req); err != nil {
		return nil, err
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if v := trimmed(req.Name); v != "" {
		user.Name = v
	}
	if v := trimmed(req.Phone); v != "" {
		user.Phone = v
	}
	if req.Education != nil {
		user.Education = normalizeEducation(*req.Education)
	}
	if req.Employment != nil {
		user.Employment = normalizeEmployment(*req.Employment)
	}
	user.UpdatedAt = time.Now().UTC()

	writeCtx, cancel := common.DetachedWrite(ctx, s.writeTimeout)
	defer cancel()
	if err := s.users.Save(writeCtx, user); err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return nil, apperr.NotFound("User")
		}
		return nil, apperr.Internal("save profile", err)
	}

	logger.WithField("user_id", userID.String()).Debug("profile updated")
	return user, nil
}

func validateProfile(req *in.ProfileUpdateRequest) error {
	if req == nil {
		return apperr.ValidationFailed("request body is required")
	}
	if req.Education != nil {
		for i, e := range *req.Education {
			if strings.TrimSpace(e.Degree) == "" || strings.TrimSpace(e.Institution) == "" {
				return apperr.InvalidInput(fmt.Sprintf("education[%d]", i), "degree and institution are required")
			}
		}
	}
	if req.Employment != nil {
		for i, e := range *req.Employment {
			field := fmt.Sprintf("employment[%d]", i)
			if strings.TrimSpace(e.Company) == "" || strings.TrimSpace(e.Role) == "" {
				return apperr.InvalidInput(field, "company and role are required")
			}
			if e.Experience < 0 {
				return apperr.InvalidInput(field, "experience cannot be negative")
			}
		}
	}
	return nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func normalizeEducation(items []domain.Education) []domain.Education {
	result := make([]domain.Education, 0, len(items))
	for _, e := range items {
		result = append(result, domain.Education{
			Degree:      strings.TrimSpace(e.Degree),
			Institution: strings.TrimSpace(e.Institution),
		})
	}
	return result
}

func normalizeEmployment(items []domain.Employment) []domain.Employment {
	result := make([]domain.Employment, 0, len(items))
	for _, e := range items {
		result = append(result, domain.Employment{
			Company:    strings.TrimSpace(e.Company),
			Role:       strings.TrimSpace(e.Role),
			Experience: e.Experience,
		})
	}
	return result
}
