package auth

import (
	"context"
	"errors"
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

const invalidCredentials = "Invalid credentials"

// Service implements in.AuthService.
type Service struct {
	users        out.UserRepository
	hasher       Hasher
	tokens       *TokenService
	revocations  out.TokenRevocationStore
	writeTimeout time.Duration

	// dummyHash is compared against when the email is unknown so that a
	// missing account costs the same bcrypt work as a wrong password.
	dummyHash string
}

var _ in.AuthService = (*Service)(nil)

// NewService wires the auth use cases. revocations may be nil, which turns
// logout into a client-side-only operation.
func NewService(users out.UserRepository, hasher Hasher, tokens *TokenService, revocations out.TokenRevocationStore, writeTimeout time.Duration) *Service {
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		logger.WithError(err).Warn("failed to prepare dummy password hash")
	}
	return &Service{
		users:        users,
		hasher:       hasher,
		tokens:       tokens,
		revocations:  revocations,
		writeTimeout: writeTimeout,
		dummyHash:    dummy,
	}
}

func (s *Service) Register(ctx context.Context, req *in.RegisterRequest) (*in.AuthResult, error) {
	name := strings.TrimSpace(req.Name)
	email := domain.NormalizeEmail(req.Email)

	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if email == "" {
		missing = append(missing, "email")
	}
	if req.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		err := apperr.MissingFields(missing...)
		err.Message = "All fields are required"
		return nil, err
	}
	if !domain.IsValidEmail(email) {
		return nil, apperr.InvalidInput("email", "must be a valid email address")
	}
	if len(req.Password) > MaxPasswordBytes {
		return nil, apperr.InvalidInput("password", "must be at most 72 bytes")
	}

	// Fast path for a friendly error; the unique index below is authoritative.
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal("find user by email", err)
	}
	if existing != nil {
		return nil, apperr.DuplicateEmail()
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Education:    []domain.Education{},
		Employment:   []domain.Employment{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	writeCtx, cancel := common.DetachedWrite(ctx, s.writeTimeout)
	defer cancel()
	if err := s.users.Create(writeCtx, user); err != nil {
		if errors.Is(err, out.ErrDuplicateEmail) {
			return nil, apperr.DuplicateEmail()
		}
		return nil, apperr.Internal("create user", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.Internal("issue token", err)
	}

	logger.WithField("user_id", user.ID.String()).Info("user registered")

	return &in.AuthResult{
		Message: "User registered successfully",
		Token:   token,
		User:    user.Summary(),
	}, nil
}

func (s *Service) Login(ctx context.Context, req *in.LoginRequest) (*in.AuthResult, error) {
	email := domain.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperr.ValidationFailed("Email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal("find user by email", err)
	}

	if user == nil {
		s.hasher.Verify(req.Password, s.dummyHash)
		logger.WithField("reason", "unknown_email").Warn("login rejected")
		return nil, apperr.Unauthorized(invalidCredentials)
	}
	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		logger.WithField("user_id", user.ID.String()).WithField("reason", "bad_password").Warn("login rejected")
		return nil, apperr.Unauthorized(invalidCredentials)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.Internal("issue token", err)
	}

	return &in.AuthResult{
		Token: token,
		User:  user.Summary(),
	}, nil
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("find user by id", err)
	}
	if user == nil {
		return nil, apperr.NotFound("User")
	}
	return user, nil
}

func (s *Service) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.revocations == nil || tokenID == "" {
		return nil
	}

	ttl := expiresAt.Sub(s.tokens.Now())
	if ttl <= 0 {
		return nil
	}

	writeCtx, cancel := common.DetachedWrite(ctx, s.writeTimeout)
	defer cancel()
	if err := s.revocations.Revoke(writeCtx, tokenID, ttl); err != nil {
		return apperr.Internal("revoke token", err)
	}
	return nil
}
