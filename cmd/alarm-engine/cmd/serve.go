package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qj0r9j0vc2/alarm-engine/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the alarm service until SIGINT or SIGTERM.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	application, err := app.New(configPath)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	runErr := application.Start(ctx)
	if err := application.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
