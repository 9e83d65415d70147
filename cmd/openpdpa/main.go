package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/openpdpa/internal/adapters/driven/config/env"
	"github.com/custodia-labs/openpdpa/internal/adapters/driving/cli"
	"github.com/custodia-labs/openpdpa/internal/app"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = ""

var _ cli.Application = (*app.App)(nil)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := env.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	application, err := app.New(settings, app.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := application.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}()

	cli.SetVersion(version)
	cli.SetApplication(application)

	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}
