package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verification failures. Callers at the HTTP boundary collapse all of them
// into one 401; they stay distinct for logs and tests.
var (
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenRevoked      = errors.New("token revoked")
)

const DefaultIssuer = "referral-api"

// Claims binds a token to exactly one user.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

type TokenOption func(*TokenService)

// WithClock overrides time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) *TokenService {
	s := &TokenService{
		secret: []byte(secret),
		issuer: DefaultIssuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

// Now is the service clock.
func (s *TokenService) Now() time.Time { return s.now() }

// Issue returns a signed token for userID.
func (s *TokenService) Issue(userID uuid.UUID) (string, error) {
	token, _, err := s.IssueWithClaims(userID)
	return token, err
}

// IssueWithClaims is Issue that also returns the claims it signed.
func (s *TokenService) IssueWithClaims(userID uuid.UUID) (string, *Claims, error) {
	if len(s.secret) == 0 {
		return "", nil, errors.New("creating token: jwt secret not configured")
	}
	if userID == uuid.Nil {
		return "", nil, errors.New("creating token: empty user id")
	}

	now := s.now()
	claims := &Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("creating token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks structure, signature and expiry, in that order, and returns
// the claims only when all pass.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)

	_, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrTokenMalformed)
	}
	if claims.UserID != "" && claims.UserID != claims.Subject {
		return nil, fmt.Errorf("%w: subject and userId disagree", ErrTokenMalformed)
	}

	return claims, nil
}

// UserID verifies the token and returns the user it is bound to.
func (s *TokenService) UserID(tokenString string) (uuid.UUID, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(claims.Subject), nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		// Unparseable input and every other claim violation.
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
