package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/observability"
	"github.com/noah-isme/mentora-api/internal/repository"
)

// MonitorOutcomeStatus reports what OpenOrSkip did.
type MonitorOutcomeStatus string

const (
	MonitorOpened  MonitorOutcomeStatus = "opened"
	MonitorSkipped MonitorOutcomeStatus = "skipped"
)

// MonitorOutcome carries the result of an escalation attempt. Record is the newly opened
// record, or the already active one when the attempt was skipped.
type MonitorOutcome struct {
	Status MonitorOutcomeStatus
	Record models.MonitoredUser
}

// MonitorListFilter narrows ListAll.
type MonitorListFilter struct {
	UserID     *uint
	TimePeriod string
}

// MonitorServiceConfig tunes the registry behaviour.
type MonitorServiceConfig struct {
	// RefreshOnSkip updates operation_count and updated_at on the active record when an
	// escalation is skipped. When false the first-detection snapshot stays frozen.
	RefreshOnSkip bool
}

// MonitorService owns the monitored-user records: escalation, resolution and reads.
type MonitorService interface {
	OpenOrSkip(ctx context.Context, userID uint, timePeriod string, observedCount int64, reason string) (MonitorOutcome, error)
	Resolve(ctx context.Context, id uint, resolvedBy uint, notes string) (models.MonitoredUser, error)
	ListActive(ctx context.Context) ([]models.MonitoredUser, error)
	ListAll(ctx context.Context, filter MonitorListFilter) ([]models.MonitoredUser, error)
	GetByID(ctx context.Context, id uint) (models.MonitoredUser, error)
}

type monitorService struct {
	repo      repository.MonitoredUserRepository
	publisher MonitorAlertPublisher
	cfg       MonitorServiceConfig
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewMonitorService constructs the monitored-user registry. publisher may be nil.
func NewMonitorService(repo repository.MonitoredUserRepository, publisher MonitorAlertPublisher, cfg MonitorServiceConfig, logger zerolog.Logger) MonitorService {
	return &monitorService{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "monitor_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/mentora-api/internal/service/monitor"),
		now:       time.Now,
	}
}

func (s *monitorService) OpenOrSkip(ctx context.Context, userID uint, timePeriod string, observedCount int64, reason string) (MonitorOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "monitor.open_or_skip")
	span.SetAttributes(
		attribute.Int64("monitor.user_id", int64(userID)),
		attribute.String("monitor.time_period", timePeriod),
		attribute.Int64("monitor.observed_count", observedCount),
	)
	defer span.End()

	if userID == 0 || strings.TrimSpace(timePeriod) == "" {
		err := fmt.Errorf("user id and time period are required")
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_escalation")
		return MonitorOutcome{}, err
	}

	now := s.now().UTC()
	record := models.MonitoredUser{
		UserID:         userID,
		Reason:         reason,
		OperationCount: observedCount,
		TimePeriod:     timePeriod,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	inserted, stored, err := s.repo.OpenIfAbsent(ctx, &record, s.cfg.RefreshOnSkip)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "escalation_failed")
		return MonitorOutcome{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if !inserted {
		span.SetAttributes(attribute.String("monitor.outcome", string(MonitorSkipped)))
		observability.MonitorEscalations().WithLabelValues(timePeriod, string(MonitorSkipped)).Inc()
		return MonitorOutcome{Status: MonitorSkipped, Record: stored}, nil
	}

	span.SetAttributes(attribute.String("monitor.outcome", string(MonitorOpened)))
	observability.MonitorEscalations().WithLabelValues(timePeriod, string(MonitorOpened)).Inc()
	s.logger.Warn().
		Uint("monitored_user_id", stored.ID).
		Uint("user_id", userID).
		Str("time_period", timePeriod).
		Int64("operation_count", observedCount).
		Str("reason", reason).
		Msg("user escalated to monitoring")

	if s.publisher != nil {
		if err := s.publisher.PublishEscalation(ctx, stored); err != nil {
			s.logger.Warn().Err(err).Uint("monitored_user_id", stored.ID).Msg("failed to publish escalation event")
		}
	}

	return MonitorOutcome{Status: MonitorOpened, Record: stored}, nil
}

func (s *monitorService) Resolve(ctx context.Context, id uint, resolvedBy uint, notes string) (models.MonitoredUser, error) {
	cleaned := stripMarkup(s.sanitizer, notes)
	if cleaned == "" {
		return models.MonitoredUser{}, ErrResolutionNotesRequired
	}

	record, err := s.repo.Resolve(ctx, id, repository.MonitoredUserResolution{
		ResolvedBy: resolvedBy,
		Notes:      cleaned,
		ResolvedAt: s.now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return models.MonitoredUser{}, ErrMonitoredUserNotFound
		case errors.Is(err, repository.ErrMonitoredUserInactive):
			return models.MonitoredUser{}, ErrMonitoredUserAlreadyResolved
		default:
			return models.MonitoredUser{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
	}

	observability.MonitorResolutions().WithLabelValues(record.TimePeriod).Inc()
	s.logger.Info().
		Uint("monitored_user_id", record.ID).
		Uint("user_id", record.UserID).
		Uint("resolved_by", resolvedBy).
		Msg("monitored user resolved")

	return record, nil
}

func (s *monitorService) ListActive(ctx context.Context) ([]models.MonitoredUser, error) {
	records, err := s.repo.List(ctx, repository.MonitoredUserFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return records, nil
}

func (s *monitorService) ListAll(ctx context.Context, filter MonitorListFilter) ([]models.MonitoredUser, error) {
	records, err := s.repo.List(ctx, repository.MonitoredUserFilter{
		UserID:     filter.UserID,
		TimePeriod: strings.TrimSpace(filter.TimePeriod),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return records, nil
}

func (s *monitorService) GetByID(ctx context.Context, id uint) (models.MonitoredUser, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.MonitoredUser{}, ErrMonitoredUserNotFound
		}
		return models.MonitoredUser{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return record, nil
}
