package router_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/config"
	"github.com/noah-isme/mentora-api/internal/handler"
	"github.com/noah-isme/mentora-api/internal/middleware"
	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/repository"
	"github.com/noah-isme/mentora-api/internal/router"
	"github.com/noah-isme/mentora-api/internal/service"
)

const testSecret = "router-test-secret"

type stack struct {
	app      *fiber.App
	monitors service.MonitorService
	logs     service.ActionLogService
}

func newStack(t *testing.T) stack {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.ActionLog{}, &models.MonitoredUser{}))

	logger := zerolog.New(io.Discard)
	cfg := config.Config{AppName: "mentora-api", AppEnv: "test", JWTSecret: testSecret, ResolveRateLimit: 50, ResolveRateLimitWindow: time.Minute}

	policy, err := service.NewThresholdPolicy(service.DefaultMonitorWindows())
	require.NoError(t, err)
	actionRepo := repository.NewActionLogRepository(db)
	logs := service.NewActionLogService(actionRepo, logger)
	frequency := service.NewActionFrequencyService(service.NewFrequencyAggregator(actionRepo, policy), policy, nil, time.Second, logger)
	monitors := service.NewMonitorService(repository.NewMonitoredUserRepository(db), nil, service.MonitorServiceConfig{}, logger)

	app := fiber.New()
	router.Register(app, cfg, router.Dependencies{
		MonitoredUserHandler: handler.NewMonitoredUserHandler(monitors, validator.New(), logger),
		ActionLogHandler:     handler.NewActionLogHandler(logs, frequency, logger),
		AccessGate: middleware.NewMonitoringAccessGate(middleware.MonitoringAccessConfig{
			Roles:  []string{middleware.RoleAdmin},
			Grants: []middleware.AccessGrant{{Role: middleware.RoleMentor, Emails: []string{"lead.mentor@mentora.io"}}},
		}),
		ActionRecorder: logs,
		JWTMiddleware:  middleware.JWTProtected(testSecret),
		Logger:         logger,
	})

	return stack{app: app, monitors: monitors, logs: logs}
}

func bearer(t *testing.T, userID uint, role, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   fmt.Sprintf("%d", userID),
		"role":  role,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestRouterGuardsMonitoringRoutes(t *testing.T) {
	s := newStack(t)

	cases := []struct {
		name   string
		auth   string
		status int
	}{
		{name: "no token", auth: "", status: fiber.StatusUnauthorized},
		{name: "admin", auth: bearer(t, 1, "admin", "admin@mentora.io"), status: fiber.StatusOK},
		{name: "granted mentor", auth: bearer(t, 2, "mentor", "Lead.Mentor@mentora.io"), status: fiber.StatusOK},
		{name: "other mentor", auth: bearer(t, 3, "mentor", "mentor@mentora.io"), status: fiber.StatusForbidden},
		{name: "mentee", auth: bearer(t, 4, "mentee", "lead.mentor@mentora.io"), status: fiber.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/monitored-users/active", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			resp, err := s.app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestRouterLogsRequireAdmin(t *testing.T) {
	s := newStack(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil)
	req.Header.Set("Authorization", bearer(t, 2, "mentor", "lead.mentor@mentora.io"))
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil)
	req.Header.Set("Authorization", bearer(t, 1, "admin", ""))
	resp, err = s.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRouterResolveIsAudited(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	outcome, err := s.monitors.OpenOrSkip(ctx, 42, service.TimePeriodLastHour, 150, "exceeded last_hour threshold of 100 with 150 operations")
	require.NoError(t, err)

	path := fmt.Sprintf("/api/v1/monitored-users/%d/resolve", outcome.Record.ID)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"resolution_notes":"reviewed, false positive"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, 2, "mentor", "lead.mentor@mentora.io"))
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	entries, err := s.logs.Query(ctx, service.ActionLogQuery{EntityType: "monitored_user"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.ActionUpdate, entries[0].Action)
	require.Equal(t, uint(2), entries[0].UserID)
	require.Equal(t, fmt.Sprintf("%d", outcome.Record.ID), entries[0].EntityID)

	req = httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"resolution_notes":"again"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, 2, "mentor", "lead.mentor@mentora.io"))
	resp, err = s.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	entries, err = s.logs.Query(ctx, service.ActionLogQuery{EntityType: "monitored_user"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRouterHealth(t *testing.T) {
	s := newStack(t)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "mentora-api", resp.Header.Get("X-Application"))
}
