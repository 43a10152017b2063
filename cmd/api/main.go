package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/config"
	"github.com/noah-isme/mentora-api/internal/database"
	"github.com/noah-isme/mentora-api/internal/handler"
	"github.com/noah-isme/mentora-api/internal/middleware"
	"github.com/noah-isme/mentora-api/internal/repository"
	"github.com/noah-isme/mentora-api/internal/router"
	"github.com/noah-isme/mentora-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("%v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	windows, err := service.BuildMonitorWindows(cfg.Monitor.LastHourMax, cfg.Monitor.Last24HoursMax, cfg.Monitor.QualifyingActions)
	if err != nil {
		log.Fatalf("invalid monitor configuration: %v", err)
	}
	policy, err := service.NewThresholdPolicy(windows)
	if err != nil {
		log.Fatalf("invalid monitor configuration: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	actionLogRepo := repository.NewActionLogRepository(db)
	monitoredUserRepo := repository.NewMonitoredUserRepository(db)

	actionLogService := service.NewActionLogService(actionLogRepo, logger)
	aggregator := service.NewFrequencyAggregator(actionLogRepo, policy)
	frequencyService := service.NewActionFrequencyService(aggregator, policy, redisClient, cfg.FrequencyCacheTTL, logger)
	publisher := service.NewMonitorAlertPublisher(redisClient, natsConn, cfg.ChannelBase)
	monitorService := service.NewMonitorService(monitoredUserRepo, publisher, service.MonitorServiceConfig{
		RefreshOnSkip: cfg.Monitor.RefreshOnSkip,
	}, logger)
	scheduler := service.NewMonitorScheduler(aggregator, policy, monitorService, service.MonitorSchedulerConfig{
		Interval:    cfg.Monitor.Interval,
		TickTimeout: cfg.Monitor.TickTimeout,
	}, logger)

	accessGate := middleware.NewMonitoringAccessGate(middleware.MonitoringAccessConfig{
		Roles: cfg.Monitor.AdminRoles,
		Grants: []middleware.AccessGrant{
			{Role: middleware.RoleMentor, Emails: cfg.Monitor.MentorEmails},
		},
	})

	monitoredUserHandler := handler.NewMonitoredUserHandler(monitorService, validate, logger)
	actionLogHandler := handler.NewActionLogHandler(actionLogService, frequencyService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		MonitoredUserHandler: monitoredUserHandler,
		ActionLogHandler:     actionLogHandler,
		AccessGate:           accessGate,
		ActionRecorder:       actionLogService,
		HealthProbes:         healthProbes(db, redisClient),
		JWTMiddleware:        middleware.JWTProtected(cfg.JWTSecret),
		Logger:               logger,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	if cfg.Monitor.Enabled {
		scheduler.Start()
	} else {
		logger.Warn().Msg("activity monitor disabled by configuration")
	}

	waitForShutdown(app, scheduler, logger)
}

func healthProbes(db *gorm.DB, redisClient *redis.Client) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	return probes
}

func waitForShutdown(app *fiber.App, scheduler *service.MonitorScheduler, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := scheduler.Stop(ctx); err != nil {
		logger.Warn().Err(err).Msg("monitor scheduler did not stop cleanly")
	}

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
