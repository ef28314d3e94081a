// Package response provides API response utilities.
package response

import (
	"github.com/gofiber/fiber/v2"
)

// MessageBody is the `{message}` body used for acknowledgements.
type MessageBody struct {
	Message string `json:"message"`
}

// OK returns a 200 response with data as the body.
func OK(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(data)
}

// Created returns a 201 created response.
func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(data)
}

// Message returns a 200 response carrying only a message.
func Message(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusOK).JSON(MessageBody{Message: message})
}

// =============================================================================
// Pagination Helper
// =============================================================================

// PaginationParams extracts pagination parameters from request.
type PaginationParams struct {
	Page     int
	PageSize int
	Offset   int
	Limit    int
}

// GetPagination extracts pagination params from request. It returns nil when
// the client asked for no paging at all, meaning "return everything".
func GetPagination(c *fiber.Ctx, defaultPageSize, maxPageSize int) *PaginationParams {
	if c.Query("page") == "" && c.Query("page_size") == "" &&
		c.Query("limit") == "" && c.Query("offset") == "" {
		return nil
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("page_size", defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	// Also support limit/offset style
	limit := c.QueryInt("limit", pageSize)
	if limit < 1 {
		limit = pageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset := c.QueryInt("offset", (page-1)*limit)
	if offset < 0 {
		offset = 0
	}

	return &PaginationParams{
		Page:     page,
		PageSize: pageSize,
		Offset:   offset,
		Limit:    limit,
	}
}
