package test

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitrine/vitrine/internal/probe"
	"github.com/vitrine/vitrine/pkg/models"
)

func TestServesIndexAtRoot(t *testing.T) {
	baseURL := startServer(t, testConfig(t, writeSite(t)))

	resp, err := http.Get(baseURL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "template gallery")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestStaticAssetHeaders(t *testing.T) {
	baseURL := startServer(t, testConfig(t, writeSite(t)))

	resp, err := http.Get(baseURL + "/style.css")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "public, max-age=31536000", resp.Header.Get("Cache-Control"))
}

func TestServesTemplateFiles(t *testing.T) {
	baseURL := startServer(t, testConfig(t, writeSite(t)))

	resp, err := http.Get(baseURL + "/Telegram/telegram_bot.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	var doc map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "Telegram Bot", doc["name"])
}

func TestMissingFileIs404(t *testing.T) {
	baseURL := startServer(t, testConfig(t, writeSite(t)))

	resp, err := http.Get(baseURL + "/nope.html")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	baseURL := startServer(t, testConfig(t, writeSite(t)))

	resp, err := http.Get(baseURL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, float64(2), health["templates"])
}

func TestLivenessProbeAgainstRunningServer(t *testing.T) {
	baseURL := startServer(t, testConfig(t, writeSite(t)))

	assert.NoError(t, probe.Check(baseURL+"/", probe.DefaultTimeout))
}

func TestLivenessProbeFailsWhenDown(t *testing.T) {
	// Nothing listens here.
	err := probe.Check("http://127.0.0.1:1/", 500*time.Millisecond)
	assert.Error(t, err)
}

func TestTemplateAPI(t *testing.T) {
	baseURL := startServer(t, testConfig(t, writeSite(t)))

	resp, err := http.Get(baseURL + "/api/v1/templates")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []models.TemplateRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	assert.Len(t, records, 2)

	resp, err = http.Get(baseURL + "/api/v1/templates?category=Telegram")
	require.NoError(t, err)
	defer resp.Body.Close()
	records = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "Telegram Bot", records[0].Title)

	resp, err = http.Get(baseURL + "/api/v1/templates/Telegram/telegram_bot.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rec models.TemplateRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, "Telegram", rec.Category)

	resp, err = http.Get(baseURL + "/api/v1/templates/Missing/none.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSearchAPI(t *testing.T) {
	baseURL := startServer(t, testConfig(t, writeSite(t)))

	resp, err := http.Get(baseURL + "/api/v1/templates/search?q=gmail")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var hits []models.SearchHit
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "Gmail Digest", hits[0].Title)

	resp, err = http.Get(baseURL + "/api/v1/templates/search")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCategoriesAPI(t *testing.T) {
	baseURL := startServer(t, testConfig(t, writeSite(t)))

	resp, err := http.Get(baseURL + "/api/v1/categories")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cats []models.CategoryCount
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cats))
	assert.Equal(t, []models.CategoryCount{
		{Name: "Gmail", Count: 1},
		{Name: "Telegram", Count: 1},
	}, cats)
}

func TestReindexAPI(t *testing.T) {
	root := writeSite(t)
	baseURL := startServer(t, testConfig(t, root))

	require.NoError(t, writeTemplate(root, "Slack/slack_alert.json",
		`{"name": "Slack Alert", "nodes": []}`))

	resp, err := http.Post(baseURL+"/api/v1/reindex", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 3, result["templates"])
}
