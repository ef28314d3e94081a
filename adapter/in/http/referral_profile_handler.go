package http

import (
	"referral_server/core/port/in"
	"referral_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ProfileHandler serves the authenticated user's profile.
type ProfileHandler struct {
	profileService in.ProfileService
}

func NewProfileHandler(profileService in.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

func (h *ProfileHandler) Register(router fiber.Router, protected fiber.Handler) {
	profile := router.Group("/profile", protected)

	profile.Get("/", h.GetProfile)
	profile.Post("/", h.UpsertProfile)
	profile.Put("/", h.UpsertProfile)
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	user, err := h.profileService.Get(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return response.OK(c, user)
}

func (h *ProfileHandler) UpsertProfile(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req in.ProfileUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.profileService.Upsert(c.UserContext(), userID, &req)
	if err != nil {
		return err
	}
	return response.OK(c, user)
}
