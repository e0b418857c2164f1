package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/config"
	"github.com/qj0r9j0vc2/alarm-engine/internal/simulation"
)

var (
	// scenarioPath to a YAML scenario; empty runs the built-in demo.
	scenarioPath string

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Replay a scenario against an in-process registry.",
		Long: `Builds a registry from the configured alarms and replays process values and
operator commands, printing every state change.

Without --scenario the built-in demo runs. When neither the config file nor
the scenario defines alarms, the demo alarm set is used.`,
		Args: cobra.NoArgs,
		RunE: runSimulate,
	}
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	alarms := cfg.Alarms

	scenario := simulation.DemoScenario()
	if scenarioPath != "" {
		scenario, err = simulation.LoadScenario(scenarioPath)
		if err != nil {
			return err
		}
		if len(scenario.Alarms) > 0 {
			alarms = scenario.Alarms
		}
	}

	runner, err := simulation.NewRunner(alarms, cmd.OutOrStdout(), simulation.Options{Capacity: cfg.Registry.Capacity})
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx, scenario)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\n%d steps, %d events, %d active\n",
		result.Steps, len(result.Events), result.Summary.TotalActive)
	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	simulateCmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "path to a YAML scenario file")
}
