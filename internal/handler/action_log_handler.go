package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/service"
	"github.com/noah-isme/mentora-api/internal/utils"
)

// ActionLogHandler exposes read access to the raw and aggregated action log.
type ActionLogHandler struct {
	logs      service.ActionLogService
	frequency service.ActionFrequencyService
	logger    zerolog.Logger
}

// NewActionLogHandler constructs the handler.
func NewActionLogHandler(logs service.ActionLogService, frequency service.ActionFrequencyService, logger zerolog.Logger) *ActionLogHandler {
	return &ActionLogHandler{
		logs:      logs,
		frequency: frequency,
		logger:    logger.With().Str("component", "action_log_handler").Logger(),
	}
}

// Register wires the log routes. The caller restricts the group to administrators.
func (h *ActionLogHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/date-range", h.dateRange)
	router.Get("/user/:id/frequency", h.userFrequency)
	router.Get("/user/:id", h.byUser)
	router.Get("/entity/:type/:id", h.byEntity)
}

func (h *ActionLogHandler) list(c *fiber.Ctx) error {
	userID, err := parseQueryUint(c, "user_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	return h.respond(c, service.ActionLogQuery{
		UserID:     userID,
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		Action:     c.Query("action"),
		Limit:      limit,
	})
}

func (h *ActionLogHandler) byUser(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	return h.respond(c, service.ActionLogQuery{UserID: &userID, Limit: limit})
}

func (h *ActionLogHandler) byEntity(c *fiber.Ctx) error {
	entityType := strings.TrimSpace(c.Params("type"))
	entityID := strings.TrimSpace(c.Params("id"))
	if entityType == "" || entityID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "entity type and id are required")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	return h.respond(c, service.ActionLogQuery{EntityType: entityType, EntityID: entityID, Limit: limit})
}

func (h *ActionLogHandler) dateRange(c *fiber.Ctx) error {
	start, err := parseQueryTime(c, "start")
	if err != nil || start == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "start must be an RFC3339 timestamp")
	}
	end, err := parseQueryTime(c, "end")
	if err != nil || end == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "end must be an RFC3339 timestamp")
	}
	if !start.Before(*end) {
		return utils.SendError(c, fiber.StatusBadRequest, "start must be before end")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	return h.respond(c, service.ActionLogQuery{From: start, Until: end, Limit: limit})
}

func (h *ActionLogHandler) userFrequency(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	response, err := h.frequency.UserFrequency(c.UserContext(), userID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to compute action frequency")
	}

	if response.CacheHit {
		c.Set("X-Cache-Hit", "true")
	} else {
		c.Set("X-Cache-Hit", "false")
	}
	return utils.SendSuccess(c, "action frequency", response)
}

func (h *ActionLogHandler) respond(c *fiber.Ctx, query service.ActionLogQuery) error {
	entries, err := h.logs.Query(c.UserContext(), query)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to query action logs")
	}
	return utils.SendSuccess(c, "action logs", dto.NewActionLogListResponse(entries))
}
