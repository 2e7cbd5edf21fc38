package http_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insights/internal/testsupport"
)

func TestMetricsCalculateAction(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	t.Run("computes diagnostics without an owner", func(t *testing.T) {
		status, body := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/metrics/calculate", "", testsupport.ScenarioFunnel())
		require.Equal(t, fiber.StatusOK, status)

		d := body["diagnostics"].(map[string]any)
		assert.InDelta(t, 29300, d["totalRevenue"], 1e-9)
		assert.InDelta(t, 14.65, d["currentROI"], 1e-9)
		assert.InDelta(t, 1, d["currentCPC"], 1e-9)
		assert.Len(t, d["messages"], 2)

		// no upsell: sales page, checkout and ROI rows
		assert.Len(t, body["comparison"], 3)

		finance := body["finance"].(map[string]any)
		assert.InDelta(t, 117.2, finance["averageOrderValue"], 1e-9)
	})

	t.Run("fills the target ROI from settings", func(t *testing.T) {
		in := testsupport.ScenarioFunnel()
		in.TargetROI = 0

		status, body := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/metrics/calculate", "", in)
		require.Equal(t, fiber.StatusOK, status)
		assert.InDelta(t, 1.5, body["input"].(map[string]any)["targetROI"], 1e-9)
	})

	t.Run("rejects negative fields", func(t *testing.T) {
		in := testsupport.ScenarioFunnel()
		in.AdSpend = -1

		status, body := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/metrics/calculate", "", in)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Contains(t, body["error"], "adSpend")
	})

	t.Run("rejects a negative target ROI instead of defaulting it", func(t *testing.T) {
		in := testsupport.ScenarioFunnel()
		in.TargetROI = -1

		status, body := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/metrics/calculate", "", in)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Contains(t, body["error"], "targetROI")
	})

	t.Run("rejects a negative monthly goal", func(t *testing.T) {
		in := testsupport.ScenarioFunnel()
		in.MonthlyRevenue = -100

		status, body := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/metrics/calculate", "", in)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Contains(t, body["error"], "monthlyRevenue")
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		status, _ := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/metrics/calculate", "", map[string]any{
			"adSpend":   100,
			"startDate": "first of march",
		})
		assert.Equal(t, fiber.StatusBadRequest, status)
	})
}

func TestOwnerScopeRequired(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	for _, path := range []string{
		"/api/v1/analyses",
		"/api/v1/analyses/last",
		"/api/v1/history/baseline",
		"/api/v1/dashboard",
	} {
		t.Run(path, func(t *testing.T) {
			status, body := testsupport.DoJSON(t, app, fiber.MethodGet, path, "", nil)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Contains(t, body["error"], "owner id is required")
		})
	}

	t.Run("query parameter is accepted", func(t *testing.T) {
		status, _ := testsupport.DoJSON(t, app, fiber.MethodGet, "/api/v1/analyses?owner_id=alice", "", nil)
		assert.Equal(t, fiber.StatusOK, status)
	})
}

func TestHealthIndexAction(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	status, body := testsupport.DoJSON(t, app, fiber.MethodGet, "/_health", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["db_status"])
	assert.Equal(t, "ok", body["cache_status"])
}

func TestMetricsEndpoint(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	status, _ := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/metrics/calculate", "", testsupport.ScenarioFunnel())
	require.Equal(t, fiber.StatusOK, status)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "insights_calculations_total")
}
