package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"referral_server/adapter/out/memory"
	"referral_server/core/port/in"
	"referral_server/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	svc         *Service
	users       *memory.UserStore
	tokens      *TokenService
	revocations *memory.RevocationStore
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := memory.NewUserStore()
	tokens := NewTokenService(testSecret, time.Hour)
	revocations := memory.NewRevocationStore()
	return &authFixture{
		svc:         NewService(users, NewPasswordHasher(bcrypt.MinCost), tokens, revocations, time.Second),
		users:       users,
		tokens:      tokens,
		revocations: revocations,
	}
}

func TestRegister_Success(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, &in.RegisterRequest{Name: "Ann", Email: "Ann@X.com", Password: "p1"})
	require.NoError(t, err)

	assert.Equal(t, "User registered successfully", res.Message)
	assert.Equal(t, "Ann", res.User.Name)
	assert.Equal(t, "ann@x.com", res.User.Email)

	uid, err := f.tokens.UserID(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, uid)

	stored, err := f.users.FindByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "p1", stored.PasswordHash)
	assert.NotContains(t, stored.PasswordHash, "p1")
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     in.RegisterRequest
		message string
	}{
		{"missing name", in.RegisterRequest{Email: "a@x.com", Password: "p"}, "All fields are required"},
		{"missing email", in.RegisterRequest{Name: "A", Password: "p"}, "All fields are required"},
		{"missing password", in.RegisterRequest{Name: "A", Email: "a@x.com"}, "All fields are required"},
		{"blank name", in.RegisterRequest{Name: "   ", Email: "a@x.com", Password: "p"}, "All fields are required"},
		{"bad email", in.RegisterRequest{Name: "A", Email: "nope", Password: "p"}, ""},
		{"password too long", in.RegisterRequest{Name: "A", Email: "a@x.com", Password: strings.Repeat("x", 73)}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			res, err := f.svc.Register(ctx, &req)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, http.StatusBadRequest, apperr.GetHTTPStatus(err))
			if tt.message != "" {
				assert.Equal(t, tt.message, apperr.AsAppError(err).Message)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, &in.RegisterRequest{Name: "Ann", Email: "ann@x.com", Password: "p1"})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, &in.RegisterRequest{Name: "Other", Email: "ANN@x.com", Password: "p2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrDuplicateEmail)
	assert.Equal(t, "Email already in use", apperr.AsAppError(err).Message)
	assert.Equal(t, http.StatusBadRequest, apperr.GetHTTPStatus(err))
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Register(ctx, &in.RegisterRequest{
				Name:     fmt.Sprintf("user-%d", i),
				Email:    "race@x.com",
				Password: "p",
			})
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.AsAppError(err).Code == apperr.CodeDuplicateEmail:
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
}

func TestRegister_SurvivesCanceledCaller(t *testing.T) {
	f := newAuthFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Register(ctx, &in.RegisterRequest{Name: "Ann", Email: "ann@x.com", Password: "p1"})
	require.NoError(t, err)

	stored, err := f.users.FindByEmail(context.Background(), "ann@x.com")
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, &in.RegisterRequest{Name: "Ann", Email: "ann@x.com", Password: "p1"})
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		res, err := f.svc.Login(ctx, &in.LoginRequest{Email: " ANN@x.com", Password: "p1"})
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID, res.User.ID)
		assert.Empty(t, res.Message)

		uid, err := f.tokens.UserID(res.Token)
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID, uid)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		_, wrongPw := f.svc.Login(ctx, &in.LoginRequest{Email: "ann@x.com", Password: "nope"})
		_, unknown := f.svc.Login(ctx, &in.LoginRequest{Email: "nobody@x.com", Password: "p1"})

		for _, err := range []error{wrongPw, unknown} {
			require.Error(t, err)
			appErr := apperr.AsAppError(err)
			assert.Equal(t, http.StatusUnauthorized, appErr.Status)
			assert.Equal(t, "Invalid credentials", appErr.Message)
		}
		assert.Equal(t, wrongPw.Error(), unknown.Error())
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := f.svc.Login(ctx, &in.LoginRequest{Email: "ann@x.com"})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestMe(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, &in.RegisterRequest{Name: "Ann", Email: "ann@x.com", Password: "p1"})
	require.NoError(t, err)

	u, err := f.svc.Me(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)

	_, err = f.svc.Me(ctx, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLogout_RevokesUntilExpiry(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, claims, err := f.tokens.IssueWithClaims(uuid.New())
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, claims.ID, claims.ExpiresAt.Time))

	revoked, err := f.revocations.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestLogout_NoStoreIsNoop(t *testing.T) {
	tokens := NewTokenService(testSecret, time.Hour)
	svc := NewService(memory.NewUserStore(), NewPasswordHasher(bcrypt.MinCost), tokens, nil, time.Second)

	assert.NoError(t, svc.Logout(context.Background(), "jti", time.Now().Add(time.Hour)))
}
