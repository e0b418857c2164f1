package app

import (
	"context"
	"fmt"

	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/persistence"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/persistence/memory"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/persistence/mysql"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/persistence/postgres"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/persistence/sqlite"
)

// initializeStorage opens the alarm journal selected by storage.type.
// The journal is an audit trail only; the registry never reads it back.
func (app *Application) initializeStorage() error {
	ctx := context.Background()
	storage := app.config.Storage

	switch storage.Type {
	case "mysql":
		repos, db, err := mysql.NewRepositories(ctx, &storage.MySQL)
		if err != nil {
			return fmt.Errorf("mysql init: %w", err)
		}
		app.journal = repos.AlarmEvent
		app.dbPinger = db // MySQL DB implements handler.ReadinessChecker
		app.dbCloser = db

		app.logger.Get().Info("MySQL storage initialized",
			"host", storage.MySQL.Primary.Host,
			"database", storage.MySQL.Primary.Database,
			"replica", storage.MySQL.Replica.Enabled,
		)

	case "postgres":
		db, err := postgres.NewDB(&storage.Postgres)
		if err != nil {
			return fmt.Errorf("postgres init: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return fmt.Errorf("postgres migration: %w", err)
		}
		app.journal = postgres.NewAlarmEventRepository(db.DB)
		app.dbPinger = db
		app.dbCloser = db

		app.logger.Get().Info("PostgreSQL storage initialized",
			"host", storage.Postgres.Host,
			"database", storage.Postgres.Database,
		)

	case "sqlite":
		db, err := sqlite.NewDB(storage.SQLite.Path)
		if err != nil {
			return fmt.Errorf("sqlite init: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return fmt.Errorf("sqlite migration: %w", err)
		}
		app.journal = sqlite.NewRepositories(db.DB).AlarmEvent
		app.dbPinger = db
		app.dbCloser = db

		app.logger.Get().Info("SQLite storage initialized",
			"path", storage.SQLite.Path,
		)

	case "memory", "":
		app.journal = memory.NewAlarmEventRepository()

		app.logger.Get().Info("in-memory storage initialized")

	default:
		return fmt.Errorf("unknown storage type: %s", storage.Type)
	}

	app.journal = persistence.NewInstrumentedEventRepository(app.journal, app.telemetry.Metrics)
	return nil
}
