// Container liveness probe: exits 0 when the local server answers the root
// path with a success status within the timeout, 1 otherwise.
package main

import (
	"fmt"
	"os"

	"github.com/vitrine/vitrine/internal/probe"
)

func main() {
	port := "80"
	if p := os.Getenv("VITRINE_PORT"); p != "" {
		port = p
	}

	if err := probe.Check("http://localhost:"+port+"/", probe.DefaultTimeout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}
