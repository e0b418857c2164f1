package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/qj0r9j0vc2/alarm-engine/internal/version"
)

const defaultConfigPath = "config/config.yaml"

var (
	// configPath to the configuration YAML file.
	configPath string

	// rootCmd runs the alarm service when no subcommand is given.
	rootCmd = &cobra.Command{
		Use:   "alarm-engine",
		Short: "ISA-18.2 alarm state engine.",
		Long: `Tracks process alarms through the ISA-18.2 lifecycle.

Process values and operator commands arrive over HTTP; every state change is
journaled and forwarded to the configured notifiers.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runServe,
	}
)

// Execute runs the alarm-engine CLI and exits with non-zero status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultConfig() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultConfigPath
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfig(), "path to configuration file (env CONFIG_PATH)")

	rootCmd.AddCommand(serveCmd, validateCmd, simulateCmd, consoleCmd)
	version.AttachCobraVersionCommand(rootCmd)
}
