package profile

import (
	"context"
	"testing"
	"time"

	"referral_server/adapter/out/memory"
	"referral_server/core/domain"
	"referral_server/core/port/in"
	"referral_server/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func seedUser(t *testing.T, users *memory.UserStore) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:           uuid.New(),
		Name:         "Ann",
		Email:        "ann@x.com",
		PasswordHash: "hash",
		Phone:        "555",
		Education:    []domain.Education{{Degree: "BSc", Institution: "MIT"}},
	}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestGet(t *testing.T) {
	users := memory.NewUserStore()
	svc := NewService(users, time.Second)
	u := seedUser(t, users)

	got, err := svc.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpsert_Merge(t *testing.T) {
	users := memory.NewUserStore()
	svc := NewService(users, time.Second)
	u := seedUser(t, users)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   in.ProfileUpdateRequest
		check func(t *testing.T, got *domain.User)
	}{
		{
			name: "empty request keeps everything",
			req:  in.ProfileUpdateRequest{},
			check: func(t *testing.T, got *domain.User) {
				assert.Equal(t, "Ann", got.Name)
				assert.Equal(t, "555", got.Phone)
				assert.Len(t, got.Education, 1)
			},
		},
		{
			name: "blank name is ignored",
			req:  in.ProfileUpdateRequest{Name: strPtr("  "), Phone: strPtr("777")},
			check: func(t *testing.T, got *domain.User) {
				assert.Equal(t, "Ann", got.Name)
				assert.Equal(t, "777", got.Phone)
			},
		},
		{
			name: "employment replaced",
			req: in.ProfileUpdateRequest{Employment: &[]domain.Employment{
				{Company: " Acme ", Role: "Dev", Experience: 2.5},
			}},
			check: func(t *testing.T, got *domain.User) {
				require.Len(t, got.Employment, 1)
				assert.Equal(t, "Acme", got.Employment[0].Company)
				assert.Len(t, got.Education, 1)
			},
		},
		{
			name: "empty list clears",
			req:  in.ProfileUpdateRequest{Education: &[]domain.Education{}},
			check: func(t *testing.T, got *domain.User) {
				assert.Empty(t, got.Education)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := svc.Upsert(ctx, u.ID, &req)
			require.NoError(t, err)

			stored, err := users.FindByID(ctx, u.ID)
			require.NoError(t, err)
			tt.check(t, stored)
			assert.Equal(t, "ann@x.com", stored.Email)
			assert.Equal(t, "hash", stored.PasswordHash)
		})
	}
}

func TestUpsert_Validation(t *testing.T) {
	users := memory.NewUserStore()
	svc := NewService(users, time.Second)
	u := seedUser(t, users)
	ctx := context.Background()

	tests := []struct {
		name string
		req  in.ProfileUpdateRequest
	}{
		{"education missing institution", in.ProfileUpdateRequest{Education: &[]domain.Education{{Degree: "BSc"}}}},
		{"employment missing role", in.ProfileUpdateRequest{Employment: &[]domain.Employment{{Company: "Acme"}}}},
		{"negative experience", in.ProfileUpdateRequest{Employment: &[]domain.Employment{{Company: "Acme", Role: "Dev", Experience: -1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := svc.Upsert(ctx, u.ID, &req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	_, err := svc.Upsert(ctx, u.ID, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpsert_UnknownUser(t *testing.T) {
	svc := NewService(memory.NewUserStore(), time.Second)

	_, err := svc.Upsert(context.Background(), uuid.New(), &in.ProfileUpdateRequest{Name: strPtr("X")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
