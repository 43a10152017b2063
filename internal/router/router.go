package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mentora-api/internal/config"
	"github.com/noah-isme/mentora-api/internal/handler"
	"github.com/noah-isme/mentora-api/internal/middleware"
	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/observability"
	"github.com/noah-isme/mentora-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	MonitoredUserHandler *handler.MonitoredUserHandler
	ActionLogHandler     *handler.ActionLogHandler
	AccessGate           *middleware.MonitoringAccessGate
	ActionRecorder       service.ActionRecorder
	HealthProbes         map[string]handler.HealthProbe
	JWTMiddleware        fiber.Handler
	Logger               zerolog.Logger
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Without a JWT middleware there is no identity and every guarded route answers 401.
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.MonitoredUserHandler != nil {
		monitored := api.Group("/monitored-users", jwtMiddleware, middleware.RequireMonitoringAccess(deps.AccessGate))
		deps.MonitoredUserHandler.Register(monitored,
			middleware.RateLimit("monitored-users:resolve", cfg.ResolveRateLimit, rateWindow(cfg)),
			middleware.AuditTrailAs(deps.ActionRecorder, models.ActionUpdate, "monitored_user", deps.Logger),
		)
	}

	if deps.ActionLogHandler != nil {
		logs := api.Group("/logs", jwtMiddleware, middleware.RequireRole(middleware.RoleAdmin))
		deps.ActionLogHandler.Register(logs)
	}
}

func rateWindow(cfg config.Config) time.Duration {
	if cfg.ResolveRateLimitWindow <= 0 {
		return time.Minute
	}
	return cfg.ResolveRateLimitWindow
}
