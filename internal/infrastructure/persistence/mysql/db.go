package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/config"
)

// DB wraps a MySQL database connection with health checking.
type DB struct {
	primary *sql.DB
	replica *sql.DB
	config  *config.MySQLConfig
}

// NewDB creates a new MySQL database connection with connection pooling.
// It establishes connections to both primary and optional replica instances.
func NewDB(cfg *config.MySQLConfig) (*DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mysql config is required")
	}

	primary, err := openInstance(cfg, cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("primary: %w", err)
	}

	db := &DB{
		primary: primary,
		config:  cfg,
	}

	if cfg.Replica.Enabled {
		replica, err := openInstance(cfg, cfg.Replica.DatabaseInstanceConfig)
		if err != nil {
			primary.Close()
			return nil, fmt.Errorf("replica: %w", err)
		}
		db.replica = replica
	}

	return db, nil
}

// openInstance opens, configures and pings one server.
func openInstance(cfg *config.MySQLConfig, inst config.DatabaseInstanceConfig) (*sql.DB, error) {
	dsn := buildDSN(inst, cfg.Charset, cfg.ParseTime, cfg.Timeout)

	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}

	conn.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.Pool.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return conn, nil
}

// buildDSN constructs a MySQL DSN string.
// Format: user:password@tcp(host:port)/database?params
func buildDSN(inst config.DatabaseInstanceConfig, charset string, parseTime bool, timeout time.Duration) string {
	// Migrations contain several statements, hence multiStatements.
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=UTC&timeout=%s&multiStatements=true",
		inst.Username,
		inst.Password,
		inst.Host,
		inst.Port,
		inst.Database,
		charset,
		parseTime,
		timeout.String(),
	)
}

// Primary returns the primary database connection for writes and consistent reads.
func (db *DB) Primary() *sql.DB {
	return db.primary
}

// Replica returns the replica database connection for reads, or primary if no replica is configured.
func (db *DB) Replica() *sql.DB {
	if db.replica != nil {
		return db.replica
	}
	return db.primary
}

// Ping checks connectivity to the database.
// It pings both primary and replica (if configured).
func (db *DB) Ping(ctx context.Context) error {
	if err := db.primary.PingContext(ctx); err != nil {
		return fmt.Errorf("primary ping failed: %w", err)
	}

	if db.replica != nil {
		if err := db.replica.PingContext(ctx); err != nil {
			return fmt.Errorf("replica ping failed: %w", err)
		}
	}

	return nil
}

// Close closes the database connections.
func (db *DB) Close() error {
	var primaryErr, replicaErr error

	if db.primary != nil {
		primaryErr = db.primary.Close()
	}

	if db.replica != nil {
		replicaErr = db.replica.Close()
	}

	if primaryErr != nil {
		return fmt.Errorf("closing primary: %w", primaryErr)
	}
	if replicaErr != nil {
		return fmt.Errorf("closing replica: %w", replicaErr)
	}

	return nil
}

// Open connects, migrates and returns the database.
func Open(ctx context.Context, cfg *config.MySQLConfig) (*DB, error) {
	db, err := NewDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating database connection: %w", err)
	}

	if err := NewMigrator(db.Primary()).Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}
