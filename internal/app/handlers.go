package app

import (
	"fmt"

	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/handler"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/server"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/slack"
	"github.com/qj0r9j0vc2/alarm-engine/internal/version"
)

func (app *Application) initializeHandlers() error {
	// Create readiness handler with dependency checkers
	readyHandler := handler.NewReadyHandler()
	if app.dbPinger != nil {
		readyHandler.AddChecker("database", app.dbPinger)
	}

	app.handlers = &server.Handlers{
		Alarm: handler.NewAlarmHandler(
			app.useCases.Ingest,
			app.useCases.Command,
			app.useCases.Query,
			app.log,
		),
		Report:  handler.NewReportHandler(app.useCases.Query, app.log),
		Health:  handler.NewHealthHandler(version.Version),
		Ready:   readyHandler,
		Reload:  handler.NewReloadHandler(app.configManager, app.log),
		Metrics: handler.NewMetricsHandler(nil),
	}

	if !app.config.IsSlackEnabled() {
		return nil
	}
	app.handlers.Slack = handler.NewSlackHandler(app.useCases.Command, app.useCases.Query, app.log)

	if sm := app.config.Slack.SocketMode; sm.Enabled {
		client, err := slack.NewSocketMode(app.config.Slack.BotToken, app.config.Slack.APIURL, sm, app.handlers.Slack, app.log)
		if err != nil {
			return fmt.Errorf("creating slack socket mode client: %w", err)
		}
		app.socketMode = client
	}
	return nil
}

func (app *Application) setupServer() {
	routerConfig := server.RouterConfig{
		RequestTimeout: app.config.Server.RequestTimeout,
		Metrics:        app.telemetry.Metrics,
	}
	if app.config.Auth.Enabled {
		routerConfig.JWTSecret = app.config.Auth.JWTSecret
		routerConfig.JWTIssuer = app.config.Auth.Issuer
	}
	if app.config.IsSlackEnabled() {
		routerConfig.SlackSigningSecret = app.config.Slack.SigningSecret
	}

	app.router = server.NewRouter(app.handlers, routerConfig, app.logger.Get())
	app.server = server.New(app.config.Server, app.router, app.logger.Get())
}
