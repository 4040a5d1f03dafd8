package test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/vitrine/vitrine/internal/server"
)

// writeSite lays out a minimal built site in a temp dir.
func writeSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"index.html":                 "<html><body>template gallery</body></html>",
		"style.css":                  "body { margin: 0 }",
		"Telegram/telegram_bot.json": `{"name": "Telegram Bot", "nodes": [{"name": "Trigger", "type": "t"}]}`,
		"Gmail/gmail_digest.json":    `{"name": "Gmail Digest", "nodes": []}`,
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func writeTemplate(root, rel, content string) error {
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// startServer boots a server on a dynamic port and waits until it answers.
// It returns the base URL.
func startServer(t *testing.T, config *server.Config) string {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	srv, err := server.New(config, logger)
	require.NoError(t, err, "Failed to create server")

	ctx, cancel := context.WithCancel(context.Background())
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-serverErrCh:
			require.NoError(t, err, "Server exited with error")
		case <-time.After(5 * time.Second):
			t.Error("Server did not shut down in time")
		}
	})

	// Port "0" is rewritten once the listener is bound.
	for i := 0; i < 100 && srv.GetPort() == "0"; i++ {
		time.Sleep(20 * time.Millisecond)
	}
	require.NotEqual(t, "0", srv.GetPort(), "Server never bound a port")

	baseURL := "http://" + config.Host + ":" + srv.GetPort()

	client := &http.Client{Timeout: time.Second}
	for i := 0; i < 50; i++ {
		resp, err := client.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return baseURL
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("Server never became healthy")
	return ""
}

func testConfig(t *testing.T, contentRoot string) *server.Config {
	t.Helper()
	config := server.DefaultConfig()
	config.Host = "127.0.0.1"
	config.Port = "0"
	config.ContentRoot = contentRoot
	config.DatabasePath = filepath.Join(t.TempDir(), "catalog.db")
	config.Watch = false
	return config
}
