package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentora-api/internal/config"
	"github.com/noah-isme/mentora-api/internal/handler"
)

func TestHealthCheck(t *testing.T) {
	cfg := config.Config{AppName: "mentora-api", AppEnv: "test"}

	app := fiber.New()
	app.Get("/health", handler.HealthCheck(cfg, map[string]handler.HealthProbe{
		"database": func(context.Context) error { return nil },
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload envelope[handler.HealthResponse]
	decodeResponse(t, resp, &payload)
	require.True(t, payload.Success)
	require.Equal(t, "ok", payload.Data.Status)
	require.Equal(t, "mentora-api", payload.Data.Service)
	require.Equal(t, "ok", payload.Data.Checks["database"])
}

func TestHealthCheckDegraded(t *testing.T) {
	app := fiber.New()
	app.Get("/health", handler.HealthCheck(config.Config{AppName: "mentora-api"}, map[string]handler.HealthProbe{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var payload envelope[handler.HealthResponse]
	decodeResponse(t, resp, &payload)
	require.False(t, payload.Success)
	require.Equal(t, "degraded", payload.Data.Status)
	require.Equal(t, "connection refused", payload.Data.Checks["redis"])
}
