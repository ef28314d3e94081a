package in

import (
	"context"
	"time"

	"referral_server/core/domain"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is the body returned by register and login.
type AuthResult struct {
	Message string             `json:"message,omitempty"`
	Token   string             `json:"token"`
	User    domain.UserSummary `json:"user"`
}

type AuthService interface {
	// Register creates a user and signs them in.
	Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error)

	// Login checks credentials and issues a token.
	Login(ctx context.Context, req *LoginRequest) (*AuthResult, error)

	// Me returns the authenticated user.
	Me(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// Logout revokes the token id until it would have expired.
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
}
