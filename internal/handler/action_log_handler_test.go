package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/handler"
	"github.com/noah-isme/mentora-api/internal/repository"
	"github.com/noah-isme/mentora-api/internal/service"
)

func newActionLogApp(t *testing.T) (*fiber.App, service.ActionLogService) {
	t.Helper()
	db := setupHandlerDB(t)
	logger := zerolog.New(io.Discard)

	repo := repository.NewActionLogRepository(db)
	policy, err := service.NewThresholdPolicy(service.DefaultMonitorWindows())
	require.NoError(t, err)
	logs := service.NewActionLogService(repo, logger)
	frequency := service.NewActionFrequencyService(service.NewFrequencyAggregator(repo, policy), policy, nil, time.Minute, logger)

	app := fiber.New()
	handler.NewActionLogHandler(logs, frequency, logger).Register(app.Group("/api/v1/logs"))
	return app, logs
}

func appendEntry(t *testing.T, logs service.ActionLogService, entry service.ActionEntry) {
	t.Helper()
	_, err := logs.Append(context.Background(), entry)
	require.NoError(t, err)
}

func TestActionLogHandler_Filters(t *testing.T) {
	app, logs := newActionLogApp(t)
	now := time.Now().UTC()

	appendEntry(t, logs, service.ActionEntry{UserID: 1, Action: "CREATE", EntityType: "session", EntityID: "10", OccurredAt: now.Add(-3 * time.Minute)})
	appendEntry(t, logs, service.ActionEntry{UserID: 1, Action: "UPDATE", EntityType: "session", EntityID: "10", OccurredAt: now.Add(-2 * time.Minute)})
	appendEntry(t, logs, service.ActionEntry{UserID: 2, Action: "DELETE", EntityType: "feedback", EntityID: "3", OccurredAt: now.Add(-1 * time.Minute)})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var all envelope[dto.ActionLogListResponse]
	decodeResponse(t, resp, &all)
	require.Equal(t, 3, all.Data.Count)
	require.Equal(t, "DELETE", all.Data.Items[0].Action)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/logs/user/1", nil))
	require.NoError(t, err)
	var byUser envelope[dto.ActionLogListResponse]
	decodeResponse(t, resp, &byUser)
	require.Equal(t, 2, byUser.Data.Count)
	require.Equal(t, "UPDATE", byUser.Data.Items[0].Action)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/logs/entity/feedback/3", nil))
	require.NoError(t, err)
	var byEntity envelope[dto.ActionLogListResponse]
	decodeResponse(t, resp, &byEntity)
	require.Equal(t, 1, byEntity.Data.Count)
	require.Equal(t, uint(2), byEntity.Data.Items[0].UserID)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/logs?action=create&limit=1", nil))
	require.NoError(t, err)
	var byAction envelope[dto.ActionLogListResponse]
	decodeResponse(t, resp, &byAction)
	require.Equal(t, 1, byAction.Data.Count)
	require.Equal(t, "CREATE", byAction.Data.Items[0].Action)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/logs?action=EXPLODE", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/logs/user/99", nil))
	require.NoError(t, err)
	var empty envelope[dto.ActionLogListResponse]
	decodeResponse(t, resp, &empty)
	require.Equal(t, 0, empty.Data.Count)
	require.NotNil(t, empty.Data.Items)
}

func TestActionLogHandler_DateRange(t *testing.T) {
	app, logs := newActionLogApp(t)
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	appendEntry(t, logs, service.ActionEntry{UserID: 1, Action: "LOGIN", EntityType: "user", EntityID: "1", OccurredAt: base})
	appendEntry(t, logs, service.ActionEntry{UserID: 1, Action: "READ", EntityType: "session", EntityID: "4", OccurredAt: base.Add(time.Hour)})

	query := url.Values{}
	query.Set("start", base.Format(time.RFC3339))
	query.Set("end", base.Add(time.Hour).Format(time.RFC3339))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/logs/date-range?"+query.Encode(), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var ranged envelope[dto.ActionLogListResponse]
	decodeResponse(t, resp, &ranged)
	require.Equal(t, 1, ranged.Data.Count)
	require.Equal(t, "LOGIN", ranged.Data.Items[0].Action)

	inverted := url.Values{}
	inverted.Set("start", base.Add(time.Hour).Format(time.RFC3339))
	inverted.Set("end", base.Format(time.RFC3339))
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/logs/date-range?"+inverted.Encode(), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/logs/date-range?start=yesterday&end=today", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestActionLogHandler_UserFrequency(t *testing.T) {
	app, logs := newActionLogApp(t)
	now := time.Now().UTC()

	appendEntry(t, logs, service.ActionEntry{UserID: 3, Action: "CREATE", EntityType: "session", EntityID: "1", OccurredAt: now.Add(-10 * time.Minute)})
	appendEntry(t, logs, service.ActionEntry{UserID: 3, Action: "FAILED_LOGIN", EntityType: "user", EntityID: "3", OccurredAt: now.Add(-2 * time.Hour)})
	appendEntry(t, logs, service.ActionEntry{UserID: 3, Action: "READ", EntityType: "session", EntityID: "1", OccurredAt: now.Add(-5 * time.Minute)})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/logs/user/3/frequency", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "false", resp.Header.Get("X-Cache-Hit"))

	var frequency envelope[dto.UserFrequencyResponse]
	decodeResponse(t, resp, &frequency)
	require.Len(t, frequency.Data.Windows, 2)
	require.Equal(t, service.TimePeriodLastHour, frequency.Data.Windows[0].TimePeriod)
	require.Equal(t, int64(1), frequency.Data.Windows[0].Count)
	require.Equal(t, int64(100), frequency.Data.Windows[0].MaxOperations)
	require.Equal(t, int64(2), frequency.Data.Windows[1].Count)
	require.False(t, frequency.Data.Windows[1].Exceeded)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/logs/user/0/frequency", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
