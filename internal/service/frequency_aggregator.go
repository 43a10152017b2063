package service

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/mentora-api/internal/repository"
)

// FrequencyAggregator counts qualifying actions per user over rolling windows.
type FrequencyAggregator struct {
	repo   repository.ActionLogRepository
	policy *ThresholdPolicy
	now    func() time.Time
}

// NewFrequencyAggregator constructs the aggregator over the action log.
func NewFrequencyAggregator(repo repository.ActionLogRepository, policy *ThresholdPolicy) *FrequencyAggregator {
	return &FrequencyAggregator{repo: repo, policy: policy, now: time.Now}
}

// Bounds returns the half-open interval [now-duration, now) covered by the window.
func (a *FrequencyAggregator) Bounds(window MonitorWindow) (time.Time, time.Time) {
	until := a.now().UTC()
	return until.Add(-window.Duration), until
}

// Scan returns the qualifying action count for every user with at least one event in the window.
func (a *FrequencyAggregator) Scan(ctx context.Context, timePeriod string) (map[uint]int64, error) {
	window, ok := a.policy.Window(timePeriod)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTimePeriod, timePeriod)
	}

	since, until := a.Bounds(window)
	counts, err := a.repo.CountByUser(ctx, repository.ActionCountFilter{
		Since:   since,
		Until:   until,
		Actions: window.QualifyingActions,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: window %s: %w", ErrAggregationFailed, timePeriod, err)
	}
	return counts, nil
}

// CountForUser returns the qualifying action count for a single user in the window.
func (a *FrequencyAggregator) CountForUser(ctx context.Context, userID uint, timePeriod string) (int64, error) {
	window, ok := a.policy.Window(timePeriod)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTimePeriod, timePeriod)
	}

	since, until := a.Bounds(window)
	counts, err := a.repo.CountByUser(ctx, repository.ActionCountFilter{
		Since:   since,
		Until:   until,
		Actions: window.QualifyingActions,
		UserID:  &userID,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: window %s: %w", ErrAggregationFailed, timePeriod, err)
	}
	return counts[userID], nil
}
