package http

import (
	"referral_server/core/port/in"
	"referral_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ReferralHandler serves the public feed and owner-scoped referral writes.
type ReferralHandler struct {
	referralService in.ReferralService
}

func NewReferralHandler(referralService in.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

// Register registers referral routes. Reads of the feed are public;
// everything else goes through protected.
func (h *ReferralHandler) Register(router fiber.Router, protected fiber.Handler) {
	referrals := router.Group("/referral")

	referrals.Get("/", h.ListReferrals)
	referrals.Post("/", protected, h.CreateReferral)
	referrals.Get("/user", protected, h.ListMyReferrals)
	referrals.Put("/:id", protected, h.UpdateReferral)
	referrals.Delete("/:id", protected, h.DeleteReferral)

	router.Get("/referrals", h.ListReferrals)
}

func (h *ReferralHandler) CreateReferral(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req in.CreateReferralRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	referral, err := h.referralService.Create(c.UserContext(), userID, &req)
	if err != nil {
		return err
	}
	return response.Created(c, referral)
}

func (h *ReferralHandler) ListReferrals(c *fiber.Ctx) error {
	feed, err := h.referralService.ListPublic(c.UserContext(), pageFrom(c))
	if err != nil {
		return err
	}
	return response.OK(c, feed)
}

func (h *ReferralHandler) ListMyReferrals(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	referrals, err := h.referralService.ListByOwner(c.UserContext(), userID, pageFrom(c))
	if err != nil {
		return err
	}
	return response.OK(c, referrals)
}

func (h *ReferralHandler) UpdateReferral(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := parseReferralID(c)
	if err != nil {
		return err
	}

	var req in.UpdateReferralRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	referral, err := h.referralService.Update(c.UserContext(), userID, id, &req)
	if err != nil {
		return err
	}
	return response.OK(c, referral)
}

func (h *ReferralHandler) DeleteReferral(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := parseReferralID(c)
	if err != nil {
		return err
	}

	if err := h.referralService.Delete(c.UserContext(), userID, id); err != nil {
		return err
	}
	return response.Message(c, "Referral deleted successfully")
}
