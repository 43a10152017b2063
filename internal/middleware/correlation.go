package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/noah-isme/mentora-api/internal/observability"
)

// HeaderCorrelationID carries the request correlation identifier in both directions.
const HeaderCorrelationID = "X-Correlation-ID"

// CorrelationID reuses the caller's X-Correlation-ID (or X-Request-ID) or mints a new one,
// echoes it back and binds it to the user context. Action events appended while serving
// the request inherit it.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(HeaderCorrelationID))
		if id == "" {
			id = strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(LocalCorrelationID, id)
		c.Set(HeaderCorrelationID, id)
		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), id))

		return c.Next()
	}
}

// GetCorrelationID returns the correlation identifier of the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(LocalCorrelationID).(string); ok && id != "" {
		return id
	}
	return observability.CorrelationID(c.UserContext())
}
