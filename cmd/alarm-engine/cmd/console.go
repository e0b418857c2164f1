package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/handler/middleware"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/config"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/console"
)

const consoleTokenTTL = 12 * time.Hour

var (
	serverURL       string
	operatorToken   string
	operatorName    string
	refreshInterval time.Duration

	consoleCmd = &cobra.Command{
		Use:   "console",
		Short: "Open the operator console against a running server.",
		Long: `Shows the alarm summary and alarm list of a running server and sends operator
commands from single keys.

When the server requires tokens and --token is not given, a token for
--operator is signed with auth.jwt_secret from the config file.`,
		Args: cobra.NoArgs,
		RunE: runConsole,
	}
)

func runConsole(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if serverURL == "" {
		serverURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	token := operatorToken
	if token == "" && cfg.Auth.Enabled && cfg.Auth.JWTSecret != "" {
		token, err = middleware.IssueOperatorToken([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, operatorName, consoleTokenTTL)
		if err != nil {
			return fmt.Errorf("signing operator token: %w", err)
		}
	}

	client := console.NewClient(serverURL,
		console.WithToken(token),
		console.WithOperator(operatorName),
	)
	return console.Run(client, serverURL, refreshInterval)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	consoleCmd.Flags().StringVar(&serverURL, "server", "", "server base URL (default http://localhost:<server.port>)")
	consoleCmd.Flags().StringVar(&operatorToken, "token", os.Getenv("ALARM_ENGINE_TOKEN"), "operator bearer token (env ALARM_ENGINE_TOKEN)")
	consoleCmd.Flags().StringVar(&operatorName, "operator", os.Getenv("USER"), "operator name sent with commands")
	consoleCmd.Flags().DurationVar(&refreshInterval, "interval", console.DefaultInterval, "refresh interval")
}
