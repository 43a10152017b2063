package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/service"
)

// LocalAuditEntityID lets a handler name the affected entity when the route has no :id param,
// e.g. after a create.
const LocalAuditEntityID = "audit_entity_id"

// AuditTrail appends an action event for every successful mutating request on the route.
// Appending happens after the handler so failed requests are not recorded; an append
// failure is logged and never changes the response.
func AuditTrail(recorder service.ActionRecorder, entityType string, logger zerolog.Logger) fiber.Handler {
	return auditTrail(recorder, "", entityType, logger)
}

// AuditTrailAs is AuditTrail with a fixed action, for routes whose HTTP method does not
// match the operation (a POST that updates a record).
func AuditTrailAs(recorder service.ActionRecorder, action models.ActionType, entityType string, logger zerolog.Logger) fiber.Handler {
	return auditTrail(recorder, action, entityType, logger)
}

func auditTrail(recorder service.ActionRecorder, fixed models.ActionType, entityType string, logger zerolog.Logger) fiber.Handler {
	auditLogger := logger.With().Str("component", "audit_trail").Str("entity_type", entityType).Logger()

	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err != nil || recorder == nil {
			return err
		}

		action := fixed
		if action == "" {
			derived, ok := actionForMethod(c.Method())
			if !ok {
				return nil
			}
			action = derived
		}
		if status := c.Response().StatusCode(); status >= fiber.StatusBadRequest {
			return nil
		}

		identity, ok := IdentityFromContext(c)
		if !ok {
			return nil
		}

		entityID := strings.TrimSpace(c.Params("id"))
		if value, ok := c.Locals(LocalAuditEntityID).(string); ok && strings.TrimSpace(value) != "" {
			entityID = strings.TrimSpace(value)
		}
		if entityID == "" {
			auditLogger.Debug().Str("route", routeTemplate(c)).Msg("no entity id for audited request")
			return nil
		}

		_, appendErr := recorder.Append(c.UserContext(), service.ActionEntry{
			UserID:        identity.ID,
			Action:        string(action),
			EntityType:    entityType,
			EntityID:      entityID,
			Details:       fmt.Sprintf("%s %s", c.Method(), routeTemplate(c)),
			IPAddress:     c.IP(),
			UserAgent:     c.Get(fiber.HeaderUserAgent),
			CorrelationID: GetCorrelationID(c),
		})
		if appendErr != nil {
			auditLogger.Error().Err(appendErr).Uint("user_id", identity.ID).Msg("failed to append audit event")
		}
		return nil
	}
}

func actionForMethod(method string) (models.ActionType, bool) {
	switch method {
	case fiber.MethodPost:
		return models.ActionCreate, true
	case fiber.MethodPut, fiber.MethodPatch:
		return models.ActionUpdate, true
	case fiber.MethodDelete:
		return models.ActionDelete, true
	default:
		return "", false
	}
}
