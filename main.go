// ./main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/kestrelmotion/showreel-cli/cmd"
	"github.com/kestrelmotion/showreel-cli/internal/observability"
)

// main is the entry point for the showreel CLI.
func main() {
	// A signal-aware context so Ctrl+C stops the browser and encoder
	// mid-run instead of orphaning them.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
