// Package probe implements the container liveness check: a local HTTP GET
// that must come back with a success status within the timeout.
package probe

import (
	"fmt"
	"net/http"
	"time"
)

const DefaultTimeout = 3 * time.Second

// Check issues a GET against url and returns nil only for a 2xx response
// received within the timeout.
func Check(url string, timeout time.Duration) error {
	client := &http.Client{
		Timeout: timeout,
	}

	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
