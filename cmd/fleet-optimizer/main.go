// Command fleet-optimizer selects a minimum-cost vessel fleet and analyzes it.
package main

import (
	"context"
	"os"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
