package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/observability"
)

// ActionFrequencyService reports per-user action frequency for every configured window.
type ActionFrequencyService interface {
	UserFrequency(ctx context.Context, userID uint) (dto.UserFrequencyResponse, error)
}

type actionFrequencyService struct {
	aggregator *FrequencyAggregator
	policy     *ThresholdPolicy
	cache      *redis.Client
	ttl        time.Duration
	logger     zerolog.Logger
}

// NewActionFrequencyService builds the frequency service. cache may be nil.
func NewActionFrequencyService(aggregator *FrequencyAggregator, policy *ThresholdPolicy, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ActionFrequencyService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &actionFrequencyService{
		aggregator: aggregator,
		policy:     policy,
		cache:      cache,
		ttl:        ttl,
		logger:     logger.With().Str("component", "action_frequency_service").Logger(),
	}
}

func (s *actionFrequencyService) UserFrequency(ctx context.Context, userID uint) (dto.UserFrequencyResponse, error) {
	if userID == 0 {
		return dto.UserFrequencyResponse{}, fmt.Errorf("%w: user id is required", ErrActionLogInvalid)
	}

	cacheKey := s.cacheKey(userID)
	if cacheKey != "" {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var response dto.UserFrequencyResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				response.CacheHit = true
				observability.FrequencyCacheResults().WithLabelValues("hit").Inc()
				return response, nil
			}
		}
	}

	windows := s.policy.Windows()
	response := dto.UserFrequencyResponse{UserID: userID, Windows: make([]dto.WindowFrequency, 0, len(windows))}
	for _, window := range windows {
		count, err := s.aggregator.CountForUser(ctx, userID, window.TimePeriod)
		if err != nil {
			observability.FrequencyCacheResults().WithLabelValues("error").Inc()
			return dto.UserFrequencyResponse{}, err
		}
		since, until := s.aggregator.Bounds(window)
		response.Windows = append(response.Windows, dto.WindowFrequency{
			TimePeriod:    window.TimePeriod,
			WindowStart:   since,
			WindowEnd:     until,
			Count:         count,
			MaxOperations: window.MaxOperations,
			Exceeded:      s.policy.Evaluate(window.TimePeriod, count).Escalate,
		})
	}

	if cacheKey != "" {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to write frequency cache")
			}
		}
	}

	observability.FrequencyCacheResults().WithLabelValues("miss").Inc()
	return response, nil
}

func (s *actionFrequencyService) cacheKey(userID uint) string {
	if s.cache == nil {
		return ""
	}
	return fmt.Sprintf("logs:frequency:v1:%d", userID)
}
