package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/presenter"
	"github.com/qj0r9j0vc2/alarm-engine/internal/app"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/config"
	"github.com/qj0r9j0vc2/alarm-engine/internal/usecase/alarm"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and list the configured alarms.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		registry, err := app.NewRegistry(cfg.Alarms, alarm.WithCapacity(cfg.Registry.Capacity))
		if err != nil {
			return fmt.Errorf("registering alarms: %w", err)
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "%s: ok (storage %s, %d alarms, capacity %d)\n\n",
			configPath, cfg.Storage.Type, registry.Len(), cfg.Registry.Capacity)
		_, _ = fmt.Fprint(out, presenter.NewTextFormatter().FormatAlarms(registry.Alarms()))
		return nil
	},
}
