package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mentora-api/internal/observability"
)

const apiPrefix = "/api/v1"

// Observability records Prometheus request metrics and one structured log line per
// /api/v1 request, tagged with the correlation id and, when known, the caller.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()
	accessLogger := logger.With().Str("component", "http").Logger()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if !strings.HasPrefix(c.Path(), apiPrefix) {
			return err
		}

		elapsed := time.Since(start)
		route := routeTemplate(c)
		method := c.Method()
		status := c.Response().StatusCode()
		statusLabel := strconv.Itoa(status)

		observability.APIRequests().WithLabelValues(method, route, statusLabel).Inc()
		observability.APILatency().WithLabelValues(method, route).Observe(elapsed.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.APIErrors().WithLabelValues(method, route, statusLabel).Inc()
		}

		var event *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			event = accessLogger.Error()
		case status >= fiber.StatusBadRequest:
			event = accessLogger.Warn()
		default:
			event = accessLogger.Info()
		}
		event = event.
			Str("correlation_id", GetCorrelationID(c)).
			Str("method", method).
			Str("route", route).
			Int("status", status).
			Dur("latency", elapsed).
			Str("latency_bucket", latencyBucket(elapsed))
		if identity, ok := IdentityFromContext(c); ok {
			event = event.Uint("user_id", identity.ID).Str("role", identity.Role)
		}
		event.Msg("api request")

		return err
	}
}

func routeTemplate(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" {
		return route.Path
	}
	return c.Path()
}

func latencyBucket(d time.Duration) string {
	for _, bound := range []time.Duration{25 * time.Millisecond, 100 * time.Millisecond, 500 * time.Millisecond, time.Second} {
		if d <= bound {
			return "<=" + bound.String()
		}
	}
	return ">1s"
}
