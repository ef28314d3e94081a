package middleware

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"referral_server/pkg/apperr"
	"referral_server/pkg/logger"
	"referral_server/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const LocalRequestID = "request_id"

// ErrorResponse is the standard error body. Message duplicates Error.Message
// at the top level, which is where browser clients look for it.
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Error     ErrorDetail `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func newErrorResponse(c *fiber.Ctx, code, message string, details map[string]any) ErrorResponse {
	return ErrorResponse{
		Success:   false,
		Message:   message,
		RequestID: requestIDFrom(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// ErrorHandler is a centralized error handler for Fiber
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID := requestIDFrom(c)

		var appErr *apperr.AppError
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &appErr):
			log := logger.WithField("request_id", requestID).
				WithField("error_code", appErr.Code).
				WithError(appErr.Err)
			if appErr.Status >= 500 {
				log.Error("internal error: %s", appErr.Message)
			} else {
				log.Debug("client error: %s", appErr.Message)
			}

			details := appErr.Details
			if appErr.Status >= 500 {
				details = nil
			}
			return c.Status(appErr.Status).JSON(newErrorResponse(c, appErr.Code, appErr.Message, details))

		case errors.As(err, &fiberErr):
			message := fiberErr.Message
			if fiberErr.Code == fiber.StatusNotFound {
				message = "Route not found"
			}
			return c.Status(fiberErr.Code).JSON(newErrorResponse(c, mapHTTPStatusToCode(fiberErr.Code), message, nil))

		default:
			logger.WithField("request_id", requestID).
				WithError(err).
				WithField("stack", string(debug.Stack())).
				Error("unexpected error: %s", err.Error())
			return c.Status(fiber.StatusInternalServerError).
				JSON(newErrorResponse(c, apperr.CodeInternalError, "Server error", nil))
		}
	}
}

// NotFound is the catch-all registered after every route.
func NotFound() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return apperr.New(apperr.CodeNotFound, "Route not found", fiber.StatusNotFound)
	}
}

// RequestID middleware adds a unique request ID to each request
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Locals(LocalRequestID, requestID)
		c.Set(fiber.HeaderXRequestID, requestID)
		return c.Next()
	}
}

// RequestLogger logs each request and records it in m, which may be nil.
func RequestLogger(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()
		// Render the error now so the logged status matches what is sent.
		if err != nil {
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}

		duration := time.Since(start)
		status := c.Response().StatusCode()
		m.ObserveRequest(c.Method(), c.Route().Path, status, duration)

		log := logger.WithFields(map[string]any{
			"request_id": requestIDFrom(c),
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"ip":         c.IP(),
		}).WithDuration(duration)
		if uid, ok := c.Locals(LocalUserID).(uuid.UUID); ok {
			log = log.WithField("user_id", uid.String())
		}

		switch {
		case status >= 500:
			log.Error("%s %s -> %d", c.Method(), c.Path(), status)
		case status >= 400:
			log.Warn("%s %s -> %d", c.Method(), c.Path(), status)
		default:
			log.Info("%s %s -> %d", c.Method(), c.Path(), status)
		}

		return err
	}
}

// Recover middleware recovers from panics
func Recover() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]any{
					"request_id": requestIDFrom(c),
					"panic":      fmt.Sprintf("%v", r),
					"path":       c.Path(),
					"method":     c.Method(),
					"stack":      string(debug.Stack()),
				}).Error("panic recovered")

				err = c.Status(fiber.StatusInternalServerError).
					JSON(newErrorResponse(c, apperr.CodeInternalError, "Server error", nil))
			}
		}()
		return c.Next()
	}
}

func mapHTTPStatusToCode(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return apperr.CodeValidationFailed
	case fiber.StatusUnauthorized:
		return apperr.CodeUnauthorized
	case fiber.StatusForbidden:
		return apperr.CodeForbidden
	case fiber.StatusNotFound:
		return apperr.CodeNotFound
	case fiber.StatusTooManyRequests:
		return apperr.CodeRateLimited
	case fiber.StatusInternalServerError:
		return apperr.CodeInternalError
	default:
		return "HTTP_" + fmt.Sprint(status)
	}
}
