package http_test

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insights/internal/analyses"
	"insights/internal/testsupport"
)

func TestAnalysisCreateAction(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	t.Run("wrapped body with a name", func(t *testing.T) {
		status, body := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/analyses", "alice", map[string]any{
			"name":  "March launch",
			"input": testsupport.ScenarioFunnel(),
		})
		require.Equal(t, fiber.StatusCreated, status)

		analysis := body["analysis"].(map[string]any)
		assert.Equal(t, "March launch", analysis["name"])
		assert.Equal(t, "alice", analysis["ownerId"])
		assert.NotEmpty(t, analysis["id"])

		d := body["diagnostics"].(map[string]any)
		assert.InDelta(t, 14.65, d["currentROI"], 1e-9)
	})

	t.Run("bare funnel input", func(t *testing.T) {
		status, body := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/analyses", "alice", testsupport.ScenarioFunnel())
		require.Equal(t, fiber.StatusCreated, status)
		assert.NotEmpty(t, body["analysis"].(map[string]any)["name"])
	})

	t.Run("invalid input", func(t *testing.T) {
		in := testsupport.ScenarioFunnel()
		in.MainProductSales = -5

		status, _ := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/analyses", "alice", in)
		assert.Equal(t, fiber.StatusBadRequest, status)
	})

	t.Run("negative target ROI", func(t *testing.T) {
		in := testsupport.ScenarioFunnel()
		in.TargetROI = -1

		status, body := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/analyses", "alice", in)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Contains(t, body["error"], "targetROI")
	})

	var count int64
	require.NoError(t, db.Model(&analyses.Analysis{}).Where("owner_id = ?", "alice").Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestAnalysesListAction(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	for i := 0; i < 3; i++ {
		status, _ := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/analyses", "alice", testsupport.ScenarioFunnel())
		require.Equal(t, fiber.StatusCreated, status)
	}
	status, _ := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/analyses", "bob", testsupport.ScenarioFunnel())
	require.Equal(t, fiber.StatusCreated, status)

	status, body := testsupport.DoJSON(t, app, fiber.MethodGet, "/api/v1/analyses", "alice", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["analyses"], 3)

	status, body = testsupport.DoJSON(t, app, fiber.MethodGet, "/api/v1/analyses?limit=2", "alice", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["analyses"], 2)

	status, body = testsupport.DoJSON(t, app, fiber.MethodGet, "/api/v1/analyses", "carol", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body["analyses"])
}

func TestAnalysisLastAction(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	status, body := testsupport.DoJSON(t, app, fiber.MethodGet, "/api/v1/analyses/last", "alice", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "No analysis found", body["error"])

	january := testsupport.ScenarioFunnel()
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	january.StartDate, january.EndDate = &start, &end
	january.AdSpend = 4000

	status, _ = testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/analyses", "alice", january)
	require.Equal(t, fiber.StatusCreated, status)
	status, _ = testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/analyses", "alice", testsupport.ScenarioFunnel())
	require.Equal(t, fiber.StatusCreated, status)

	status, body = testsupport.DoJSON(t, app, fiber.MethodGet, "/api/v1/analyses/last", "alice", nil)
	require.Equal(t, fiber.StatusOK, status)

	// March is the latest; only January qualifies as its baseline.
	baseline := body["baseline"].(map[string]any)
	assert.InDelta(t, 29300, baseline["revenue"], 1e-9)
	assert.InDelta(t, 25300, baseline["profit"], 1e-9)
	assert.NotNil(t, body["baseline_comparison"])
	assert.Len(t, body["comparison"], 3)
}

func TestAnalysisDeleteAction(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	status, body := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/analyses", "alice", testsupport.ScenarioFunnel())
	require.Equal(t, fiber.StatusCreated, status)
	id := body["analysis"].(map[string]any)["id"].(string)

	// Another owner cannot see it.
	status, body = testsupport.DoJSON(t, app, fiber.MethodDelete, "/api/v1/analyses/"+id, "bob", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Analysis not found", body["error"])

	status, _ = testsupport.DoJSON(t, app, fiber.MethodDelete, "/api/v1/analyses/"+id, "alice", nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, _ = testsupport.DoJSON(t, app, fiber.MethodDelete, "/api/v1/analyses/"+id, "alice", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestAnalysisDraftAction(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	for _, adSpend := range []float64{1000, 2000} {
		in := testsupport.ScenarioFunnel()
		in.AdSpend = adSpend

		status, body := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/analyses/draft", "alice", in)
		require.Equal(t, fiber.StatusAccepted, status)
		assert.Equal(t, "queued", body["status"])
		assert.NotNil(t, body["diagnostics"])
	}

	var drafts []analyses.Analysis
	require.NoError(t, db.Where("owner_id = ? AND draft = ?", "alice", true).Find(&drafts).Error)
	require.Len(t, drafts, 1)

	in, err := drafts[0].DecodeInput()
	require.NoError(t, err)
	assert.Equal(t, 2000.0, in.AdSpend)

	// Drafts are the latest analysis but never part of history.
	status, body := testsupport.DoJSON(t, app, fiber.MethodGet, "/api/v1/analyses/last", "alice", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["analysis"].(map[string]any)["draft"])
	assert.Nil(t, body["baseline"])

	status, body = testsupport.DoJSON(t, app, fiber.MethodGet, "/api/v1/analyses", "alice", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body["analyses"])

	t.Run("invalid draft", func(t *testing.T) {
		in := testsupport.ScenarioFunnel()
		in.TotalClicks = -1
		status, _ := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/analyses/draft", "alice", in)
		assert.Equal(t, fiber.StatusBadRequest, status)

		in = testsupport.ScenarioFunnel()
		in.TargetROI = -1
		status, body := testsupport.DoJSON(t, app, fiber.MethodPost, "/api/v1/analyses/draft", "alice", in)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Contains(t, body["error"], "targetROI")
	})
}
