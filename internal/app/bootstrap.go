package app

import (
	"fmt"

	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/config"
)

func (app *Application) bootstrap(configPath string) error {
	// 1. Load configuration
	if err := app.loadConfig(configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// 2. Setup logger
	app.setupLogger()

	// 3. Setup telemetry (OpenTelemetry)
	if err := app.setupTelemetry(); err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}

	// 4. Setup config manager
	if err := app.setupConfigManager(configPath); err != nil {
		return fmt.Errorf("setting up config manager: %w", err)
	}

	// 5. Initialize storage layer
	if err := app.initializeStorage(); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	// 6. Initialize infrastructure clients
	app.initializeClients()

	// 7. Build the alarm registry and its dispatcher
	if err := app.initializeRegistry(); err != nil {
		return fmt.Errorf("initializing registry: %w", err)
	}

	// 8. Initialize use cases
	app.initializeUseCases()

	// 9. Initialize HTTP handlers and the Slack operator surface
	if err := app.initializeHandlers(); err != nil {
		return fmt.Errorf("initializing handlers: %w", err)
	}

	// 10. Setup HTTP server
	app.setupServer()

	// 11. Apply reloadable settings on config change
	app.registerReloadHooks()

	return nil
}

func (app *Application) loadConfig(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	app.config = cfg
	return nil
}

func (app *Application) setupLogger() {
	app.logger = NewAtomicLogger(NewLogHandler(app.config.Logging.Level, app.config.Logging.Format, app.logOutput))
	app.log = NewLogAdapter(app.logger.Get())

	app.logger.Get().Info("configuration loaded",
		"slack_enabled", app.config.IsSlackEnabled(),
		"pagerduty_enabled", app.config.IsPagerDutyEnabled(),
		"storage_type", app.config.Storage.Type,
		"alarms", len(app.config.Alarms),
		"server_port", app.config.Server.Port,
	)
}

func (app *Application) setupConfigManager(path string) error {
	manager, err := config.NewConfigManager(path, app.config, app.log)
	if err != nil {
		return err
	}
	app.configManager = manager
	return nil
}
