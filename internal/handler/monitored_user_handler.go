package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/middleware"
	"github.com/noah-isme/mentora-api/internal/service"
	"github.com/noah-isme/mentora-api/internal/utils"
)

// MonitoredUserHandler exposes the monitored-user review endpoints.
type MonitoredUserHandler struct {
	service   service.MonitorService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewMonitoredUserHandler constructs the handler.
func NewMonitoredUserHandler(service service.MonitorService, validator *validator.Validate, logger zerolog.Logger) *MonitoredUserHandler {
	return &MonitoredUserHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "monitored_user_handler").Logger(),
	}
}

// Register attaches the routes. The caller guards the group with the monitoring access gate;
// resolveGuards run before the resolve handler (rate limiting, audit trail).
func (h *MonitoredUserHandler) Register(router fiber.Router, resolveGuards ...fiber.Handler) {
	router.Get("/active", h.listActive)
	router.Get("", h.listAll)
	router.Get("/:id", h.get)

	resolveChain := append(append([]fiber.Handler{}, resolveGuards...), h.resolve)
	router.Post("/:id/resolve", resolveChain...)
}

func (h *MonitoredUserHandler) listActive(c *fiber.Ctx) error {
	records, err := h.service.ListActive(c.UserContext())
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list active monitored users")
	}
	return utils.SendSuccess(c, "active monitored users", dto.NewMonitoredUserListResponse(records))
}

func (h *MonitoredUserHandler) listAll(c *fiber.Ctx) error {
	userID, err := parseQueryUint(c, "user_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	records, err := h.service.ListAll(c.UserContext(), service.MonitorListFilter{
		UserID:     userID,
		TimePeriod: c.Query("time_period"),
	})
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list monitored users")
	}
	return utils.SendSuccess(c, "monitored users", dto.NewMonitoredUserListResponse(records))
}

func (h *MonitoredUserHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	record, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to fetch monitored user")
	}
	return utils.SendSuccess(c, "monitored user", dto.NewMonitoredUserResponse(record))
}

func (h *MonitoredUserHandler) resolve(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.MonitoredUserResolveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	payload.ResolutionNotes = strings.TrimSpace(payload.ResolutionNotes)
	if payload.ResolutionNotes == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "resolution_notes is required")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	record, err := h.service.Resolve(c.UserContext(), id, identity.ID, payload.ResolutionNotes)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to resolve monitored user")
	}
	return utils.SendSuccess(c, "monitored user resolved", dto.NewMonitoredUserResponse(record))
}
