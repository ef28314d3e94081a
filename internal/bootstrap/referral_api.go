package bootstrap

import (
	"context"
	"strings"

	"referral_server/adapter/in/http"
	"referral_server/config"
	"referral_server/infra/middleware"
	"referral_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// NewAPI connects dependencies and returns the ready-to-listen app.
func NewAPI(ctx context.Context, cfg *config.Config) (*fiber.App, func(), error) {
	deps, cleanup, err := NewDependencies(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}
	return NewApp(deps), cleanup, nil
}

// NewApp builds the fiber app on top of already wired dependencies.
func NewApp(deps *Dependencies) *fiber.App {
	cfg := deps.Config

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		AppName:               "referral-api",

		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit: 1 * 1024 * 1024,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(deps.Metrics))
	app.Use(middleware.Recover())
	app.Use(middleware.SecurityHeaders())

	// AllowCredentials:true requires explicit origins (not "*")
	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		allowOrigins = "*"
		allowCredentials = false
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    "X-Request-ID",
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}))

	http.NewHealthHandler(deps.HealthChecks, deps.Metrics).Register(app)

	api := app.Group("/api",
		middleware.RateLimit(cfg.RateLimitMax, cfg.RateLimitWindow),
		middleware.ValidateContentType(),
	)

	protected := middleware.JWTAuth(middleware.AuthConfig{
		Tokens:      deps.Tokens,
		Revocations: deps.Revocations,
		Metrics:     deps.Metrics,
	})

	http.NewAuthHandler(deps.AuthService, deps.Metrics).Register(api, protected)
	http.NewProfileHandler(deps.ProfileService).Register(api, protected)
	http.NewReferralHandler(deps.ReferralService).Register(api, protected)

	app.Use(middleware.NotFound())

	return app
}
