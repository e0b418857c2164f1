package app

import (
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/config"
)

// registerReloadHooks applies the hot-reloadable keys: logging.level,
// logging.format and registry.capacity.
func (app *Application) registerReloadHooks() {
	app.configManager.OnReload(func(old, next *config.Config) {
		if old.Logging != next.Logging {
			app.logger.Swap(NewLogHandler(next.Logging.Level, next.Logging.Format, app.logOutput))
			app.logger.Get().Info("logging reconfigured",
				"level", next.Logging.Level,
				"format", next.Logging.Format,
			)
		}

		if old.Registry.Capacity != next.Registry.Capacity {
			app.registry.SetCapacity(next.Registry.Capacity)
		}
	})
}
