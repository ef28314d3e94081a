package http

import (
	"referral_server/core/domain"
	"referral_server/infra/middleware"
	"referral_server/pkg/apperr"
	"referral_server/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// GetUserID extracts the user id the auth gate stored on the context.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := c.Locals(middleware.LocalUserID).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, apperr.Unauthorized("Unauthorized: missing token")
	}
	return userID, nil
}

// parseReferralID treats a malformed id the same as an unknown one.
func parseReferralID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.NotFound("Referral")
	}
	return id, nil
}

// parseBody decodes a JSON body. An empty body decodes to the zero value so
// that the service reports the missing fields.
func parseBody(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return apperr.ValidationFailed("Invalid request body")
	}
	return nil
}

// pageFrom returns nil when the request carries no paging parameters.
func pageFrom(c *fiber.Ctx) *domain.Page {
	p := response.GetPagination(c, defaultPageSize, maxPageSize)
	if p == nil {
		return nil
	}
	return &domain.Page{Offset: p.Offset, Limit: p.Limit}
}
