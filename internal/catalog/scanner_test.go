package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitrine/vitrine/pkg/models"
)

// writeContentTree lays out a small template repository for tests.
func writeContentTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"index.html": "<html><body>gallery</body></html>",
		"Telegram/telegram_bot.json": `{
			"name": "Telegram Bot",
			"nodes": [{"name": "Trigger", "type": "t"}, {"name": "Send", "type": "t"}]
		}`,
		"Telegram/broadcast.json":  `{"nodes": []}`,
		"Gmail/gmail_digest.json":  `{"name": "Gmail Digest", "nodes": [{"name": "a", "type": "t"}]}`,
		"Gmail/notes.txt":          "not a template",
		"all_templates.json":       `[]`,
		"tools/helper.json":        `{}`,
		".github/workflow.json":    `{}`,
		"preview/index.html":       "<html>preview</html>",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func recordsByPath(records []models.TemplateRecord) map[string]models.TemplateRecord {
	byPath := make(map[string]models.TemplateRecord, len(records))
	for _, rec := range records {
		byPath[rec.RelativePath] = rec
	}
	return byPath
}

func TestScanFindsTemplatesAndSkipsExcluded(t *testing.T) {
	root := writeContentTree(t)

	records, err := NewScanner(root, testLogger()).Scan()
	require.NoError(t, err)
	require.Len(t, records, 3)

	byPath := recordsByPath(records)
	assert.Contains(t, byPath, "Telegram/telegram_bot.json")
	assert.Contains(t, byPath, "Telegram/broadcast.json")
	assert.Contains(t, byPath, "Gmail/gmail_digest.json")

	// Generated index, tools, and hidden directories are not templates.
	assert.NotContains(t, byPath, "all_templates.json")
	assert.NotContains(t, byPath, "tools/helper.json")
	assert.NotContains(t, byPath, ".github/workflow.json")
}

func TestScanRecordFields(t *testing.T) {
	root := writeContentTree(t)

	records, err := NewScanner(root, testLogger()).Scan()
	require.NoError(t, err)

	rec := recordsByPath(records)["Telegram/telegram_bot.json"]
	assert.Equal(t, "Telegram Bot", rec.Title)
	assert.Equal(t, "Telegram", rec.Category)
	require.NotNil(t, rec.NodesCount)
	assert.Equal(t, 2, *rec.NodesCount)
	assert.Positive(t, rec.FileSizeBytes)
	assert.NotEmpty(t, rec.ModifiedISO)
	assert.True(t, filepath.IsAbs(rec.AbsolutePath))
}

func TestScanTitleFallsBackToFileStem(t *testing.T) {
	root := writeContentTree(t)

	records, err := NewScanner(root, testLogger()).Scan()
	require.NoError(t, err)

	// No `name` field, so the stem wins.
	rec := recordsByPath(records)["Telegram/broadcast.json"]
	assert.Equal(t, "broadcast", rec.Title)
	require.NotNil(t, rec.NodesCount)
	assert.Equal(t, 0, *rec.NodesCount)
}

func TestScanMalformedTemplateStillIndexed(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "Misc", "broken.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "bro`), 0644))

	records, err := NewScanner(root, testLogger()).Scan()
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "broken", records[0].Title)
	assert.Nil(t, records[0].NodesCount)
}

func TestScanTopLevelFileHasEmptyCategory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "loose.json"), []byte(`{}`), 0644))

	records, err := NewScanner(root, testLogger()).Scan()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "", records[0].Category)
}
