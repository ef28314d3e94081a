package http

import (
	"context"
	"sort"
	"time"

	"referral_server/pkg/logger"
	"referral_server/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks  map[string]HealthCheck
	metrics *metrics.Metrics
}

// NewHealthHandler builds the liveness, readiness and metrics endpoints.
// checks may be empty, e.g. for the in-memory driver.
func NewHealthHandler(checks map[string]HealthCheck, m *metrics.Metrics) *HealthHandler {
	return &HealthHandler{checks: checks, metrics: m}
}

func (h *HealthHandler) Register(app fiber.Router) {
	app.Get("/", h.Root)
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
	if h.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(
			promhttp.HandlerFor(h.metrics.Registry(), promhttp.HandlerOpts{}),
		))
	}
}

func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.SendString("API is running")
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	allHealthy := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			logger.WithField("check", name).WithError(err).Warn("readiness check failed")
			checks[name] = "unhealthy"
			allHealthy = false
		} else {
			checks[name] = "healthy"
		}
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
