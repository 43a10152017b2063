package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/mentora-api/internal/observability"
)

const (
	defaultMonitorInterval    = 5 * time.Minute
	defaultMonitorTickTimeout = time.Minute
)

// WindowScanner returns per-user qualifying action counts for a window.
type WindowScanner interface {
	Scan(ctx context.Context, timePeriod string) (map[uint]int64, error)
}

// Escalator opens a monitored-user record unless one is already active.
type Escalator interface {
	OpenOrSkip(ctx context.Context, userID uint, timePeriod string, observedCount int64, reason string) (MonitorOutcome, error)
}

// MonitorSchedulerConfig controls the tick cadence and the per-window deadline.
type MonitorSchedulerConfig struct {
	Interval    time.Duration
	TickTimeout time.Duration
}

// WindowResult summarises one window pass within a tick.
type WindowResult struct {
	TimePeriod string
	Users      int
	Opened     int
	Skipped    int
	Failed     int
	Err        error
}

// TickResult summarises a scheduler tick. Skipped is true when a previous tick was still running.
type TickResult struct {
	Skipped bool
	Windows []WindowResult
}

// MonitorScheduler periodically scans every configured window and escalates offenders.
// Ticks never overlap within a process.
type MonitorScheduler struct {
	scanner   WindowScanner
	policy    *ThresholdPolicy
	escalator Escalator
	cfg       MonitorSchedulerConfig
	logger    zerolog.Logger
	tracer    trace.Tracer

	running atomic.Bool

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewMonitorScheduler constructs the scheduler. It does nothing until Start or RunOnce is called.
func NewMonitorScheduler(scanner WindowScanner, policy *ThresholdPolicy, escalator Escalator, cfg MonitorSchedulerConfig, logger zerolog.Logger) *MonitorScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultMonitorInterval
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = defaultMonitorTickTimeout
	}
	return &MonitorScheduler{
		scanner:   scanner,
		policy:    policy,
		escalator: escalator,
		cfg:       cfg,
		logger:    logger.With().Str("component", "monitor_scheduler").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/mentora-api/internal/service/monitor_scheduler"),
	}
}

// Start begins firing ticks every configured interval. Calling Start twice is a no-op.
func (s *MonitorScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	cronLogger := cronLogAdapter{logger: s.logger}
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)), cron.WithLogger(cronLogger))
	c.Schedule(cron.Every(s.cfg.Interval), cron.FuncJob(func() {
		s.RunOnce(ctx)
	}))
	c.Start()

	s.cron = c
	s.cancel = cancel
	s.logger.Info().Dur("interval", s.cfg.Interval).Dur("tick_timeout", s.cfg.TickTimeout).Msg("monitor scheduler started")
}

// Stop halts the timer, cancels an in-flight tick and waits for it to return or ctx to expire.
func (s *MonitorScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}

	cancel()
	done := c.Stop()

	select {
	case <-done.Done():
		s.logger.Info().Msg("monitor scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("monitor scheduler stop: %w", ctx.Err())
	}
}

// RunOnce executes a single tick synchronously. If another tick is running it returns
// immediately with Skipped set.
func (s *MonitorScheduler) RunOnce(ctx context.Context) TickResult {
	if !s.running.CompareAndSwap(false, true) {
		observability.MonitorTicksSkipped().Inc()
		s.logger.Warn().Msg("previous monitor tick still running, skipping")
		return TickResult{Skipped: true}
	}
	defer s.running.Store(false)

	start := time.Now()
	defer func() {
		observability.MonitorTickDuration().Observe(time.Since(start).Seconds())
	}()

	if observability.CorrelationID(ctx) == "" {
		ctx = observability.WithCorrelationID(ctx, uuid.NewString())
	}

	windows := s.policy.Windows()
	result := TickResult{Windows: make([]WindowResult, 0, len(windows))}
	for _, window := range windows {
		if ctx.Err() != nil {
			s.logger.Info().Str("time_period", window.TimePeriod).Msg("monitor tick cancelled before window")
			break
		}
		result.Windows = append(result.Windows, s.runWindow(ctx, window))
	}

	return result
}

func (s *MonitorScheduler) runWindow(parent context.Context, window MonitorWindow) WindowResult {
	ctx, cancel := context.WithTimeout(parent, s.cfg.TickTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "monitor.scan_window")
	span.SetAttributes(attribute.String("monitor.time_period", window.TimePeriod))
	defer span.End()

	result := WindowResult{TimePeriod: window.TimePeriod}
	logger := s.logger.With().
		Str("time_period", window.TimePeriod).
		Str("correlation_id", observability.CorrelationID(ctx)).
		Logger()

	counts, err := s.scanner.Scan(ctx, window.TimePeriod)
	if err != nil {
		result.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan_failed")
		observability.MonitorScans().WithLabelValues(window.TimePeriod, scanStatus(err)).Inc()
		logger.Error().Err(err).Msg("monitor window scan failed")
		return result
	}
	result.Users = len(counts)

	for userID, count := range counts {
		if ctx.Err() != nil {
			result.Err = ctx.Err()
			break
		}

		decision := s.policy.Evaluate(window.TimePeriod, count)
		if !decision.Escalate {
			continue
		}

		outcome, err := s.escalator.OpenOrSkip(ctx, userID, window.TimePeriod, count, decision.Reason)
		if err != nil {
			result.Failed++
			logger.Error().Err(err).Uint("user_id", userID).Int64("operation_count", count).Msg("failed to escalate user")
			continue
		}

		switch outcome.Status {
		case MonitorOpened:
			result.Opened++
		case MonitorSkipped:
			result.Skipped++
			logger.Debug().Uint("user_id", userID).Uint("monitored_user_id", outcome.Record.ID).Msg("active monitoring record exists, skipping")
		}
	}

	status := scanStatus(result.Err)
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, status)
		logger.Error().Err(result.Err).Msg("monitor window pass aborted")
	}
	observability.MonitorScans().WithLabelValues(window.TimePeriod, status).Inc()
	span.SetAttributes(
		attribute.Int("monitor.users", result.Users),
		attribute.Int("monitor.opened", result.Opened),
		attribute.Int("monitor.skipped", result.Skipped),
		attribute.Int("monitor.failed", result.Failed),
	)

	logger.Info().
		Int("users", result.Users).
		Int("opened", result.Opened).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("monitor window scanned")

	return result
}

func scanStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}

type cronLogAdapter struct {
	logger zerolog.Logger
}

func (l cronLogAdapter) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
