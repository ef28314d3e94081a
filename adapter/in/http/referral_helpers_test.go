package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"referral_server/core/domain"
	"referral_server/infra/middleware"
	"referral_server/pkg/apperr"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageFrom(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  *domain.Page
	}{
		{"no params", "", nil},
		{"limit only", "?limit=5", &domain.Page{Offset: 0, Limit: 5}},
		{"page and size", "?page=3&page_size=10", &domain.Page{Offset: 20, Limit: 10}},
		{"page and limit", "?page=2&limit=10", &domain.Page{Offset: 10, Limit: 10}},
		{"limit capped", "?limit=1000", &domain.Page{Offset: 0, Limit: maxPageSize}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			var got *domain.Page
			app.Get("/", func(c *fiber.Ctx) error {
				got = pageFrom(c)
				return nil
			})

			_, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseReferralID(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
	app.Get("/:id", func(c *fiber.Ctx) error {
		id, err := parseReferralID(c)
		if err != nil {
			return err
		}
		return c.SendString(id.String())
	})

	id := uuid.New()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+id.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/42", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetUserID(t *testing.T) {
	app := fiber.New()
	var gotErr error
	app.Get("/", func(c *fiber.Ctx) error {
		_, gotErr = GetUserID(c)
		return nil
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.True(t, errors.Is(gotErr, apperr.ErrUnauthorized))
}

func TestHealthReady(t *testing.T) {
	checks := map[string]HealthCheck{
		"ok":   func(context.Context) error { return nil },
		"down": func(context.Context) error { return errors.New("dial tcp db.internal:5432: password authentication failed") },
	}
	app := fiber.New()
	NewHealthHandler(checks, nil).Register(app)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "not ready", body.Status)
	assert.Equal(t, "healthy", body.Checks["ok"])
	assert.Equal(t, "unhealthy", body.Checks["down"])

	// metrics endpoint is only mounted when metrics are configured
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
