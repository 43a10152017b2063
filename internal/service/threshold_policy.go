package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/mentora-api/internal/models"
)

// Well-known window labels.
const (
	TimePeriodLastHour    = "last_hour"
	TimePeriodLast24Hours = "last_24_hours"
)

// DefaultQualifyingActions are the actions counted toward a window unless configured otherwise.
// READ is left out so ordinary browsing never trips a threshold.
var DefaultQualifyingActions = []models.ActionType{
	models.ActionCreate,
	models.ActionUpdate,
	models.ActionDelete,
	models.ActionFailedLogin,
}

// MonitorWindow configures one rolling window evaluated by the scheduler.
type MonitorWindow struct {
	TimePeriod        string
	Duration          time.Duration
	MaxOperations     int64
	QualifyingActions []models.ActionType
}

// DefaultMonitorWindows returns the stock window configuration.
func DefaultMonitorWindows() []MonitorWindow {
	return []MonitorWindow{
		{TimePeriod: TimePeriodLastHour, Duration: time.Hour, MaxOperations: 100, QualifyingActions: DefaultQualifyingActions},
		{TimePeriod: TimePeriodLast24Hours, Duration: 24 * time.Hour, MaxOperations: 500, QualifyingActions: DefaultQualifyingActions},
	}
}

// Decision is the outcome of evaluating an observed count against a window threshold.
type Decision struct {
	Escalate bool
	Reason   string
}

// NoAction is the decision returned when a count stays within its threshold.
var NoAction = Decision{}

// ThresholdPolicy maps a window and observed count to an escalation decision.
type ThresholdPolicy struct {
	windows map[string]MonitorWindow
	order   []string
}

// NewThresholdPolicy validates the windows and builds the policy.
func NewThresholdPolicy(windows []MonitorWindow) (*ThresholdPolicy, error) {
	policy := &ThresholdPolicy{windows: make(map[string]MonitorWindow, len(windows))}
	for _, window := range windows {
		period := strings.TrimSpace(window.TimePeriod)
		if period == "" {
			return nil, fmt.Errorf("monitor window time period must not be empty")
		}
		if window.Duration <= 0 {
			return nil, fmt.Errorf("monitor window %s: duration must be positive", period)
		}
		if window.MaxOperations < 0 {
			return nil, fmt.Errorf("monitor window %s: max operations must not be negative", period)
		}
		if _, exists := policy.windows[period]; exists {
			return nil, fmt.Errorf("monitor window %s configured twice", period)
		}
		window.TimePeriod = period
		if len(window.QualifyingActions) == 0 {
			window.QualifyingActions = DefaultQualifyingActions
		}
		policy.windows[period] = window
		policy.order = append(policy.order, period)
	}
	return policy, nil
}

// Windows returns the configured windows in configuration order.
func (p *ThresholdPolicy) Windows() []MonitorWindow {
	windows := make([]MonitorWindow, 0, len(p.order))
	for _, period := range p.order {
		windows = append(windows, p.windows[period])
	}
	return windows
}

// Window looks up a configured window by label.
func (p *ThresholdPolicy) Window(timePeriod string) (MonitorWindow, bool) {
	window, ok := p.windows[timePeriod]
	return window, ok
}

// Evaluate escalates iff count exceeds the window's maximum. Unknown windows never escalate.
func (p *ThresholdPolicy) Evaluate(timePeriod string, count int64) Decision {
	window, ok := p.windows[timePeriod]
	if !ok || count <= window.MaxOperations {
		return NoAction
	}
	return Decision{
		Escalate: true,
		Reason:   fmt.Sprintf("exceeded %s threshold of %d with %d operations", window.TimePeriod, window.MaxOperations, count),
	}
}

// BuildMonitorWindows assembles the stock windows with configured thresholds and actions.
func BuildMonitorWindows(lastHourMax, last24HoursMax int64, actions []string) ([]MonitorWindow, error) {
	qualifying := make([]models.ActionType, 0, len(actions))
	for _, raw := range actions {
		action, ok := models.ParseActionType(raw)
		if !ok {
			return nil, fmt.Errorf("unsupported qualifying action %q", raw)
		}
		qualifying = append(qualifying, action)
	}
	if len(qualifying) == 0 {
		qualifying = DefaultQualifyingActions
	}

	windows := DefaultMonitorWindows()
	for i := range windows {
		windows[i].QualifyingActions = qualifying
		switch windows[i].TimePeriod {
		case TimePeriodLastHour:
			windows[i].MaxOperations = lastHourMax
		case TimePeriodLast24Hours:
			windows[i].MaxOperations = last24HoursMax
		}
	}
	return windows, nil
}
