package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/observability"
	"github.com/noah-isme/mentora-api/internal/repository"
)

const (
	defaultActionLogLimit = 100
	maxActionLogLimit     = 500
)

// ActionEntry captures the details required to append an action event.
type ActionEntry struct {
	UserID        uint
	Action        string
	EntityType    string
	EntityID      string
	Details       string
	IPAddress     string
	UserAgent     string
	CorrelationID string
	Metadata      map[string]interface{}
	OccurredAt    time.Time
}

// ActionLogQuery describes a read against the action log.
type ActionLogQuery struct {
	UserID     *uint
	EntityType string
	EntityID   string
	Action     string
	From       *time.Time
	Until      *time.Time
	Limit      int
}

// ActionRecorder appends events to the action log.
type ActionRecorder interface {
	Append(ctx context.Context, entry ActionEntry) (string, error)
}

// ActionLogService exposes the append-only action log.
type ActionLogService interface {
	ActionRecorder
	Query(ctx context.Context, query ActionLogQuery) ([]models.ActionLog, error)
}

type actionLogService struct {
	repo      repository.ActionLogRepository
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewActionLogService constructs the action log service.
func NewActionLogService(repo repository.ActionLogRepository, logger zerolog.Logger) ActionLogService {
	return &actionLogService{
		repo:      repo,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "action_log_service").Logger(),
		now:       time.Now,
	}
}

func (s *actionLogService) Append(ctx context.Context, entry ActionEntry) (string, error) {
	if entry.UserID == 0 {
		return "", fmt.Errorf("%w: user id is required", ErrActionLogInvalid)
	}
	action, ok := models.ParseActionType(entry.Action)
	if !ok {
		if strings.TrimSpace(entry.Action) == "" {
			return "", fmt.Errorf("%w: action is required", ErrActionLogInvalid)
		}
		return "", fmt.Errorf("%w: unsupported action %q", ErrActionLogInvalid, entry.Action)
	}
	entityType := strings.ToLower(strings.TrimSpace(entry.EntityType))
	if entityType == "" {
		return "", fmt.Errorf("%w: entity type is required", ErrActionLogInvalid)
	}
	entityID := strings.TrimSpace(entry.EntityID)
	if entityID == "" {
		return "", fmt.Errorf("%w: entity id is required", ErrActionLogInvalid)
	}

	correlationID := strings.TrimSpace(entry.CorrelationID)
	if correlationID == "" {
		correlationID = observability.CorrelationID(ctx)
	}

	occurredAt := entry.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}

	model := models.ActionLog{
		ID:            uuid.NewString(),
		UserID:        entry.UserID,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Details:       stripMarkup(s.sanitizer, entry.Details),
		IPAddress:     truncate(strings.TrimSpace(entry.IPAddress), 64),
		UserAgent:     truncate(strings.TrimSpace(entry.UserAgent), 512),
		CorrelationID: truncate(correlationID, 64),
		Metadata:      sanitizeMetadata(entry.Metadata),
		OccurredAt:    occurredAt.UTC(),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Uint("user_id", model.UserID).Str("action", string(model.Action)).Msg("failed to persist action log")
		return "", fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return model.ID, nil
}

func (s *actionLogService) Query(ctx context.Context, query ActionLogQuery) ([]models.ActionLog, error) {
	filter := repository.ActionLogFilter{
		UserID:     query.UserID,
		EntityType: strings.ToLower(strings.TrimSpace(query.EntityType)),
		EntityID:   strings.TrimSpace(query.EntityID),
		From:       query.From,
		Until:      query.Until,
		Limit:      clampActionLogLimit(query.Limit),
	}
	if trimmed := strings.TrimSpace(query.Action); trimmed != "" {
		action, ok := models.ParseActionType(trimmed)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported action %q", ErrActionLogInvalid, query.Action)
		}
		filter.Action = action
	}
	if filter.From != nil && filter.Until != nil && !filter.From.Before(*filter.Until) {
		return nil, fmt.Errorf("%w: start must be before end", ErrActionLogInvalid)
	}

	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if entries == nil {
		entries = []models.ActionLog{}
	}
	return entries, nil
}

func clampActionLogLimit(limit int) int {
	if limit <= 0 {
		return defaultActionLogLimit
	}
	if limit > maxActionLogLimit {
		return maxActionLogLimit
	}
	return limit
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") || strings.Contains(lower, "password") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

// truncate caps value at max bytes without splitting a UTF-8 sequence. Invalid input
// bytes are dropped so the column never receives malformed text.
func truncate(value string, max int) string {
	value = strings.ToValidUTF8(value, "")
	if len(value) <= max {
		return value
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}

// stripMarkup removes HTML tags and keeps the remaining text as written.
func stripMarkup(policy *bluemonday.Policy, value string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(value)))
}
