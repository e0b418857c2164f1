package app

import (
	"fmt"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/config"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/observability"
	"github.com/qj0r9j0vc2/alarm-engine/internal/usecase/alarm"
)

// NewRecord builds the record for one configured alarm, applying its
// initial suppressed, shelved and enabled flags. No events are emitted.
func NewRecord(c config.AlarmConfig) (*entity.AlarmRecord, error) {
	priority, err := entity.ParsePriority(c.Priority)
	if err != nil {
		return nil, fmt.Errorf("alarm %s: %w", c.Tag, err)
	}

	record, err := entity.NewAlarmRecord(c.Tag, c.Description, priority, c.Setpoint, c.Deadband)
	if err != nil {
		return nil, fmt.Errorf("alarm %s: %w", c.Tag, err)
	}

	if c.Suppressed {
		record.Suppress()
	}
	if c.Shelved {
		record.Shelve()
	}
	if !c.IsEnabled() {
		record.SetEnabled(false)
	}
	return record, nil
}

// NewRegistry creates a registry and registers every configured alarm in order.
func NewRegistry(alarms []config.AlarmConfig, opts ...alarm.Option) (*alarm.Registry, error) {
	registry := alarm.NewRegistry(opts...)
	for _, c := range alarms {
		record, err := NewRecord(c)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(record); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (app *Application) initializeRegistry() error {
	app.dispatcher = alarm.NewDispatcher(
		app.config.Registry.EventBuffer,
		app.journal,
		app.clients.Notifiers,
		app.telemetry.Metrics,
		app.log,
	)

	registry, err := NewRegistry(app.config.Alarms,
		alarm.WithCapacity(app.config.Registry.Capacity),
		alarm.WithPublisher(app.dispatcher),
		alarm.WithLogger(app.log),
	)
	if err != nil {
		return err
	}
	app.registry = registry

	if err := app.telemetry.Metrics.ObserveRegistry(observability.RegistryStats{
		Summary: registry.Summary,
		Dropped: app.dispatcher.Dropped,
	}); err != nil {
		return fmt.Errorf("observing registry: %w", err)
	}

	summary := registry.Summary()
	app.logger.Get().Info("alarm registry initialized",
		"alarms", registry.Len(),
		"active", summary.TotalActive,
		"capacity", summary.Capacity,
		"event_buffer", app.config.Registry.EventBuffer,
	)
	return nil
}
