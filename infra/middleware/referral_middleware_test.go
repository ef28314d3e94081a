package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"referral_server/adapter/out/memory"
	"referral_server/core/service/auth"
	"referral_server/pkg/apperr"
	"referral_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

type failingRevocations struct{}

func (failingRevocations) Revoke(context.Context, string, time.Duration) error {
	return errors.New("redis down")
}

func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func newGateApp(cfg AuthConfig) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(RequestID())
	app.Get("/protected", JWTAuth(cfg), func(c *fiber.Ctx) error {
		uid := c.Locals(LocalUserID).(uuid.UUID)
		claims, ok := ClaimsFrom(c)
		if !ok {
			return errors.New("claims missing")
		}
		return c.JSON(fiber.Map{"user_id": uid.String(), "jti": claims.ID})
	})
	return app
}

func doGet(t *testing.T, app *fiber.App, authHeader string) (int, ErrorResponse, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var errBody ErrorResponse
	var okBody map[string]string
	if resp.StatusCode >= 400 {
		require.NoError(t, json.Unmarshal(body, &errBody))
	} else {
		require.NoError(t, json.Unmarshal(body, &okBody))
	}
	return resp.StatusCode, errBody, okBody
}

func TestJWTAuth(t *testing.T) {
	tokens := auth.NewTokenService(testSecret, time.Hour)
	app := newGateApp(AuthConfig{Tokens: tokens})

	userID := uuid.New()
	valid, err := tokens.Issue(userID)
	require.NoError(t, err)

	foreign, err := auth.NewTokenService("other-secret", time.Hour).Issue(userID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"no header", "", http.StatusUnauthorized, "Unauthorized: missing token"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Unauthorized: missing token"},
		{"scheme only", "Bearer", http.StatusUnauthorized, "Unauthorized: missing token"},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized, "Unauthorized: invalid token"},
		{"foreign secret", "Bearer " + foreign, http.StatusUnauthorized, "Unauthorized: invalid token"},
		{"valid", "Bearer " + valid, http.StatusOK, ""},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, errBody, okBody := doGet(t, app, tt.header)
			assert.Equal(t, tt.status, status)
			if tt.status == http.StatusOK {
				assert.Equal(t, userID.String(), okBody["user_id"])
				return
			}
			assert.Equal(t, tt.message, errBody.Message)
			assert.Equal(t, apperr.CodeUnauthorized, errBody.Error.Code)
			assert.False(t, errBody.Success)
			assert.NotEmpty(t, errBody.RequestID)
		})
	}
}

func TestJWTAuth_LogsRejectionAtWarn(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{Level: logger.LevelWarn, Output: &buf})
	t.Cleanup(func() { logger.Init(logger.Config{Level: logger.LevelError, Output: io.Discard}) })

	app := newGateApp(AuthConfig{Tokens: auth.NewTokenService(testSecret, time.Hour)})
	status, _, _ := doGet(t, app, "Bearer garbage")
	require.Equal(t, http.StatusUnauthorized, status)

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "token rejected")
	assert.NotContains(t, buf.String(), "garbage")
}

func TestJWTAuth_ExpiredToken(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	tokens := auth.NewTokenService(testSecret, time.Minute, auth.WithClock(clock))
	app := newGateApp(AuthConfig{Tokens: tokens})

	token, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	status, body, _ := doGet(t, app, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized: invalid token", body.Message)
}

func TestJWTAuth_Revoked(t *testing.T) {
	tokens := auth.NewTokenService(testSecret, time.Hour)
	revocations := memory.NewRevocationStore()
	app := newGateApp(AuthConfig{Tokens: tokens, Revocations: revocations})

	token, claims, err := tokens.IssueWithClaims(uuid.New())
	require.NoError(t, err)

	status, _, _ := doGet(t, app, "Bearer "+token)
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, revocations.Revoke(context.Background(), claims.ID, time.Hour))

	status, body, _ := doGet(t, app, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized: invalid token", body.Message)
}

func TestJWTAuth_RevocationOutageFailsOpen(t *testing.T) {
	tokens := auth.NewTokenService(testSecret, time.Hour)
	app := newGateApp(AuthConfig{Tokens: tokens, Revocations: failingRevocations{}})

	token, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	status, _, _ := doGet(t, app, "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(RequestID(), Recover())
	app.Get("/forbidden", func(c *fiber.Ctx) error { return apperr.Forbidden("nope") })
	app.Get("/internal", func(c *fiber.Ctx) error {
		return apperr.Internal("db", errors.New("connection refused to 10.0.0.1"))
	})
	app.Get("/plain", func(c *fiber.Ctx) error { return errors.New("boom") })
	app.Get("/panic", func(c *fiber.Ctx) error { panic("kaboom") })
	app.Use(NotFound())

	tests := []struct {
		path    string
		status  int
		code    string
		message string
	}{
		{"/forbidden", http.StatusForbidden, apperr.CodeForbidden, "nope"},
		{"/internal", http.StatusInternalServerError, apperr.CodeInternalError, "Server error"},
		{"/plain", http.StatusInternalServerError, apperr.CodeInternalError, "Server error"},
		{"/panic", http.StatusInternalServerError, apperr.CodeInternalError, "Server error"},
		{"/nowhere", http.StatusNotFound, apperr.CodeNotFound, "Route not found"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(raw, &body))

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.message, body.Message)
			assert.NotContains(t, string(raw), "10.0.0.1")
		})
	}
}

func TestRequestID_Propagates(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(requestIDFrom(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(RateLimit(2, time.Minute))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestValidateContentType(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(ValidateContentType())
	app.Post("/", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "text/plain")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
