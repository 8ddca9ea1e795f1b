// Command clipline is the process entrypoint: load host settings and
// execute the root cobra command.
package main

import (
	"fmt"
	"os"

	"github.com/highlightlab/clipline/cmd"
	"github.com/highlightlab/clipline/internal/hostconf"
)

func main() {
	settings, err := hostconf.Load(os.Getenv("CLIPLINE_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cmd.RootCommand(settings).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
