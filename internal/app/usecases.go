package app

import (
	"github.com/qj0r9j0vc2/alarm-engine/internal/usecase/alarm"
)

// UseCases holds the application use cases.
type UseCases struct {
	Ingest  *alarm.IngestProcessValueUseCase
	Command *alarm.OperatorCommandUseCase
	Query   *alarm.QueryAlarmsUseCase
}

func (app *Application) initializeUseCases() {
	app.useCases = &UseCases{
		Ingest:  alarm.NewIngestProcessValueUseCase(app.registry, app.telemetry.Metrics, app.log),
		Command: alarm.NewOperatorCommandUseCase(app.registry, app.log),
		Query:   alarm.NewQueryAlarmsUseCase(app.registry, app.journal),
	}
}
