package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mentora-api/internal/middleware"
	"github.com/noah-isme/mentora-api/internal/service"
	"github.com/noah-isme/mentora-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseQueryUint(c *fiber.Ctx, key string) (*uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return nil, errors.New("invalid " + key)
	}
	id := uint(parsed)
	return &id, nil
}

func parseQueryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	parsed = parsed.UTC()
	return &parsed, nil
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Params(name)), 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// sendServiceError maps monitoring and action log errors onto HTTP responses.
func sendServiceError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	switch {
	case isValidationError(err),
		errors.Is(err, service.ErrActionLogInvalid),
		errors.Is(err, service.ErrResolutionNotesRequired),
		errors.Is(err, service.ErrUnknownTimePeriod):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrMonitoredUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "monitored user not found")
	case errors.Is(err, service.ErrMonitoredUserAlreadyResolved):
		return utils.SendError(c, fiber.StatusConflict, "monitored user already resolved")
	case errors.Is(err, service.ErrStorageUnavailable), errors.Is(err, service.ErrAggregationFailed):
		requestLogger(logger, c).Error().Err(err).Msg(fallback)
		c.Set(fiber.HeaderRetryAfter, "5")
		return utils.SendError(c, fiber.StatusServiceUnavailable, fallback)
	default:
		requestLogger(logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
