package app

import (
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/observability"
	"github.com/qj0r9j0vc2/alarm-engine/internal/version"
)

// setupTelemetry initializes OpenTelemetry tracing and metrics.
func (app *Application) setupTelemetry() error {
	telemetry, err := observability.NewTelemetry(observability.ServiceName, version.Version)
	if err != nil {
		return err
	}

	app.telemetry = telemetry

	app.logger.Get().Info("telemetry initialized",
		"service", observability.ServiceName,
		"version", version.Version,
		"metrics_enabled", true,
		"tracing_enabled", false, // NoOp tracer for now
	)

	return nil
}
