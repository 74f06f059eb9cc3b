package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"task-ledger/internal/cli"
	"task-ledger/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Defaults, .env and TL_* variables; flags are applied by the root command
	cfg, err := config.NewLoader().Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	rt := newRuntime(config.GetEnvironment())
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.NewRootCommand(rt, cfg).ExecuteContext(ctx)
}
