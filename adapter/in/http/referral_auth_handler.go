package http

import (
	"errors"

	"referral_server/core/port/in"
	"referral_server/infra/middleware"
	"referral_server/pkg/apperr"
	"referral_server/pkg/metrics"
	"referral_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler serves registration, login and session endpoints.
type AuthHandler struct {
	authService in.AuthService
	metrics     *metrics.Metrics
}

func NewAuthHandler(authService in.AuthService, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{authService: authService, metrics: m}
}

// Register registers auth routes. protected is the auth gate.
func (h *AuthHandler) Register(router fiber.Router, protected fiber.Handler) {
	auth := router.Group("/auth")

	auth.Post("/register", h.Signup)
	auth.Post("/signup", h.Signup)
	auth.Post("/login", h.Login)
	auth.Get("/me", protected, h.Me)
	auth.Post("/logout", protected, h.Logout)
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req in.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Register(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return response.Created(c, result)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req in.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			h.metrics.AuthRejected(metrics.AuthLoginFailed)
		}
		return err
	}
	return response.OK(c, result)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Me(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return response.OK(c, user)
}

// Logout revokes the presented token for the rest of its lifetime.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok || claims.ExpiresAt == nil {
		return apperr.Unauthorized("Unauthorized: invalid token")
	}

	if err := h.authService.Logout(c.UserContext(), claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	return response.Message(c, "Logged out successfully")
}
