package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/terraincognita07/cycleinsight/internal/config"
	"github.com/terraincognita07/cycleinsight/internal/db"
	"go.uber.org/zap"
)

func testConfig() config.Config {
	return config.Config{
		Server:   config.ServerConfig{Port: 8080, LogLevel: "info", Timezone: "UTC"},
		Database: config.DatabaseConfig{Driver: db.DriverSQLite},
		Tracking: config.TrackingConfig{DefaultCycleLength: 28, OnInvalidFlow: config.FlowPolicyReject},
		Query:    config.QueryConfig{RatePerMinute: 30, Burst: 10},
	}
}

func newTestHandler(t *testing.T, cfg config.Config) *Handler {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "cycleinsight-api.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	handler, err := NewHandler(database, cfg, zap.NewNop())
	require.NoError(t, err)
	handler.now = func() time.Time {
		return time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	}
	handler.analyticsService.(interface{ SetClock(func() time.Time) }).SetClock(handler.now)
	handler.readiness.MarkReady()
	return handler
}

func newTestApp(t *testing.T, handler *Handler) *fiber.App {
	t.Helper()
	app := fiber.New()
	RegisterRoutes(app, handler)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method string, path string, payload any) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, body)
	if payload != nil {
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	response, err := app.Test(request, -1)
	require.NoError(t, err, "%s %s failed", method, path)
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	return response.StatusCode, raw
}

func decodeBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	decoded := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	return decoded
}

func addTestPeriod(t *testing.T, app *fiber.App, payload map[string]any) string {
	t.Helper()
	status, raw := doJSON(t, app, http.MethodPost, "/api/periods", payload)
	require.Equal(t, http.StatusCreated, status, "body: %s", raw)

	body := decodeBody(t, raw)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "body: %s", raw)
	periodID, _ := data["period_id"].(string)
	require.NotEmpty(t, periodID)
	return periodID
}
