package app

import (
	"context"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/handler"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/repository"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/config"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/observability"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/server"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/slack"
	"github.com/qj0r9j0vc2/alarm-engine/internal/usecase/alarm"
)

// Application holds all application dependencies and lifecycle
type Application struct {
	config        *config.Config
	configManager *config.ConfigManager
	logger        *AtomicLogger
	logOutput     io.Writer
	log           logger.Logger
	telemetry     *observability.Telemetry

	// Storage
	journal  repository.AlarmEventRepository
	dbCloser io.Closer // For cleanup
	dbPinger handler.ReadinessChecker

	// Infrastructure clients
	clients    *Clients
	socketMode *slack.SocketMode

	// Alarm core
	registry   *alarm.Registry
	dispatcher *alarm.Dispatcher

	// Use cases
	useCases *UseCases

	// HTTP layer
	handlers *server.Handlers
	router   http.Handler
	server   *server.Server

	shutdownOnce sync.Once
}

// Option configures an Application.
type Option func(*Application)

// WithLogOutput sends logs to w instead of stdout.
func WithLogOutput(w io.Writer) Option {
	return func(app *Application) { app.logOutput = w }
}

// New creates a new Application instance
func New(configPath string, opts ...Option) (*Application, error) {
	app := &Application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}

	if err := app.bootstrap(configPath); err != nil {
		app.closeStorage()
		return nil, err
	}

	return app, nil
}

// Config returns the configuration the application was started with.
func (app *Application) Config() *config.Config {
	return app.config
}

// Registry returns the alarm registry.
func (app *Application) Registry() *alarm.Registry {
	return app.registry
}

// Start runs the dispatcher, the config watcher, Slack socket mode if enabled
// and the HTTP server until ctx is cancelled. Queued alarm events are drained
// after the server stops.
func (app *Application) Start(ctx context.Context) error {
	app.logger.Get().Info("starting alarm-engine",
		"port", app.config.Server.Port,
		"alarms", app.registry.Len(),
		"capacity", app.registry.Summary().Capacity,
	)

	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		app.dispatcher.Run(dispatchCtx)
	}()

	app.configManager.Watch()

	if app.socketMode != nil {
		go func() {
			if err := app.socketMode.Run(ctx); err != nil {
				app.logger.Get().Error("slack socket mode stopped", "error", err)
			}
		}()
	}

	err := app.server.Run(ctx)

	stopDispatch()
	<-dispatched
	app.logger.Get().Info("alarm dispatcher stopped",
		"processed", app.dispatcher.Processed(),
		"dropped", app.dispatcher.Dropped(),
	)
	return err
}

// Shutdown gracefully stops the application
func (app *Application) Shutdown() error {
	var err error
	app.shutdownOnce.Do(func() {
		app.logger.Get().Info("shutting down alarm-engine")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Shutdown telemetry
		if app.telemetry != nil {
			if terr := app.telemetry.Shutdown(ctx); terr != nil {
				app.logger.Get().Error("failed to shutdown telemetry", "error", terr)
			}
		}

		err = app.closeStorage()
		app.logger.Get().Info("alarm-engine stopped")
	})
	return err
}

func (app *Application) closeStorage() error {
	if app.dbCloser == nil {
		return nil
	}
	closer := app.dbCloser
	app.dbCloser = nil
	if err := closer.Close(); err != nil {
		if app.logger != nil {
			app.logger.Get().Error("failed to close database", "error", err)
		}
		return err
	}
	return nil
}
