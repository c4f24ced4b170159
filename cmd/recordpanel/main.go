package main

import (
	"context"
	"fmt"
	"os"

	"recordpanel/internal/bootstrap"
	"recordpanel/internal/cli"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	sink := cli.NewTerminalSink(os.Stderr)
	services, err := bootstrap.Build(sink)
	if err != nil {
		return fmt.Errorf("initializing recorder: %w", err)
	}
	defer services.Close()

	deps := &cli.Dependencies{Services: services, Sink: sink}
	return cli.NewRootCmd(deps).ExecuteContext(context.Background())
}
