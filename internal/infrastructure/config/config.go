package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Registry      RegistryConfig      `yaml:"registry"`
	Alarms        []AlarmConfig       `yaml:"alarms"`
	Slack         SlackConfig         `yaml:"slack"`
	PagerDuty     PagerDutyConfig     `yaml:"pagerduty"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects and configures the alarm journal backend.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory", "sqlite", "mysql" or "postgres"
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"` // database file path, ":memory:" for in-memory
}

// MySQLConfig holds MySQL-specific settings.
type MySQLConfig struct {
	Primary   DatabaseInstanceConfig `yaml:"primary"`
	Replica   MySQLReplicaConfig     `yaml:"replica"`
	Pool      PoolConfig             `yaml:"pool"`
	Timeout   time.Duration          `yaml:"timeout"`
	ParseTime bool                   `yaml:"parse_time"`
	Charset   string                 `yaml:"charset"`
}

// DatabaseInstanceConfig holds connection settings for one database server.
type DatabaseInstanceConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MySQLReplicaConfig holds MySQL read replica settings.
type MySQLReplicaConfig struct {
	Enabled                bool `yaml:"enabled"`
	DatabaseInstanceConfig `yaml:",inline"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DatabaseInstanceConfig `yaml:",inline"`
	SSLMode                string        `yaml:"ssl_mode"`
	Pool                   PoolConfig    `yaml:"pool"`
	Timeout                time.Duration `yaml:"timeout"`
}

// PoolConfig holds database/sql connection pool settings.
type PoolConfig struct {
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RegistryConfig holds alarm registry settings.
type RegistryConfig struct {
	// Capacity is the active-alarm count above which CapacityExceeded is raised.
	Capacity int `yaml:"capacity"`

	// EventBuffer is the dispatcher queue size.
	EventBuffer int `yaml:"event_buffer"`
}

// AlarmConfig describes one alarm to register at startup.
type AlarmConfig struct {
	Tag         string  `yaml:"tag"`
	Description string  `yaml:"description"`
	Priority    string  `yaml:"priority"`
	Setpoint    float64 `yaml:"setpoint"`
	Deadband    float64 `yaml:"deadband"`
	Enabled     *bool   `yaml:"enabled"` // nil means enabled
	Shelved     bool    `yaml:"shelved"`
	Suppressed  bool    `yaml:"suppressed"`
}

// IsEnabled reports whether the alarm starts in service.
func (a AlarmConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// SlackConfig holds Slack notifier settings.
type SlackConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
	APIURL    string `yaml:"api_url"` // optional, for tests

	// SigningSecret enables the /slack/interactions and /slack/commands
	// endpoints. Requests without a valid signature are rejected.
	SigningSecret string `yaml:"signing_secret"`

	SocketMode SocketModeConfig `yaml:"socket_mode"`
}

// SocketModeConfig receives Slack button clicks and slash commands over a
// websocket instead of public HTTP endpoints.
type SocketModeConfig struct {
	Enabled  bool   `yaml:"enabled"`
	AppToken string `yaml:"app_token"` // xapp-...
	Debug    bool   `yaml:"debug"`
}

// PagerDutyConfig holds PagerDuty Events API v2 settings.
type PagerDutyConfig struct {
	Enabled    bool   `yaml:"enabled"`
	RoutingKey string `yaml:"routing_key"`
	EventsURL  string `yaml:"events_url"` // optional, for tests
	Source     string `yaml:"source"`
	Component  string `yaml:"component"`
	ClientName string `yaml:"client_name"`
}

// NotificationsConfig holds delivery behaviour shared by all notifiers.
type NotificationsConfig struct {
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// RetryConfig mirrors alarm.RetryPolicy.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	Multiplier      float64       `yaml:"multiplier"`
	JitterFactor    float64       `yaml:"jitter_factor"`
}

// CircuitBreakerConfig configures the per-notifier circuit breaker.
type CircuitBreakerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// AuthConfig holds operator authentication settings for command endpoints.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"` // optional; checked when set
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from file and environment.
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// load reads, expands and defaults the config without validating it.
func load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			if err := Parse(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	cfg.overrideFromEnv()
	cfg.applyDefaults()

	return cfg, nil
}

// Parse expands ${VAR} references and decodes YAML into cfg.
func Parse(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// overrideFromEnv overrides config values from environment variables.
func (c *Config) overrideFromEnv() {
	// Server
	envInt("SERVER_PORT", &c.Server.Port)

	// Registry
	envInt("ALARM_CAPACITY", &c.Registry.Capacity)
	envInt("ALARM_EVENT_BUFFER", &c.Registry.EventBuffer)

	// Slack
	envBool("SLACK_ENABLED", &c.Slack.Enabled)
	envString("SLACK_BOT_TOKEN", &c.Slack.BotToken)
	envString("SLACK_CHANNEL_ID", &c.Slack.ChannelID)
	envString("SLACK_API_URL", &c.Slack.APIURL)
	envString("SLACK_SIGNING_SECRET", &c.Slack.SigningSecret)
	envBool("SLACK_SOCKET_MODE_ENABLED", &c.Slack.SocketMode.Enabled)
	envString("SLACK_APP_TOKEN", &c.Slack.SocketMode.AppToken)

	// PagerDuty
	envBool("PAGERDUTY_ENABLED", &c.PagerDuty.Enabled)
	envString("PAGERDUTY_ROUTING_KEY", &c.PagerDuty.RoutingKey)
	envString("PAGERDUTY_EVENTS_URL", &c.PagerDuty.EventsURL)

	// Auth
	envBool("AUTH_ENABLED", &c.Auth.Enabled)
	envString("AUTH_JWT_SECRET", &c.Auth.JWTSecret)

	// Logging
	envString("LOG_LEVEL", &c.Logging.Level)
	envString("LOG_FORMAT", &c.Logging.Format)

	// Storage
	envString("STORAGE_TYPE", &c.Storage.Type)
	envString("SQLITE_DATABASE_PATH", &c.Storage.SQLite.Path)

	// MySQL
	envString("MYSQL_HOST", &c.Storage.MySQL.Primary.Host)
	envInt("MYSQL_PORT", &c.Storage.MySQL.Primary.Port)
	envString("MYSQL_DATABASE", &c.Storage.MySQL.Primary.Database)
	envString("MYSQL_USERNAME", &c.Storage.MySQL.Primary.Username)
	envString("MYSQL_PASSWORD", &c.Storage.MySQL.Primary.Password)
	envInt("MYSQL_MAX_OPEN_CONNS", &c.Storage.MySQL.Pool.MaxOpenConns)
	envInt("MYSQL_MAX_IDLE_CONNS", &c.Storage.MySQL.Pool.MaxIdleConns)
	envDuration("MYSQL_CONN_MAX_LIFETIME", &c.Storage.MySQL.Pool.ConnMaxLifetime)
	envDuration("MYSQL_CONN_MAX_IDLE_TIME", &c.Storage.MySQL.Pool.ConnMaxIdleTime)

	// MySQL replica (optional)
	envBool("MYSQL_REPLICA_ENABLED", &c.Storage.MySQL.Replica.Enabled)
	envString("MYSQL_REPLICA_HOST", &c.Storage.MySQL.Replica.Host)
	envInt("MYSQL_REPLICA_PORT", &c.Storage.MySQL.Replica.Port)
	envString("MYSQL_REPLICA_DATABASE", &c.Storage.MySQL.Replica.Database)
	envString("MYSQL_REPLICA_USERNAME", &c.Storage.MySQL.Replica.Username)
	envString("MYSQL_REPLICA_PASSWORD", &c.Storage.MySQL.Replica.Password)

	// PostgreSQL
	envString("POSTGRES_HOST", &c.Storage.Postgres.Host)
	envInt("POSTGRES_PORT", &c.Storage.Postgres.Port)
	envString("POSTGRES_DATABASE", &c.Storage.Postgres.Database)
	envString("POSTGRES_USERNAME", &c.Storage.Postgres.Username)
	envString("POSTGRES_PASSWORD", &c.Storage.Postgres.Password)
	envString("POSTGRES_SSL_MODE", &c.Storage.Postgres.SSLMode)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.ToLower(v) == "true"
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// applyDefaults sets default values for unset config options.
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 15 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}

	// Registry defaults
	if c.Registry.Capacity == 0 {
		c.Registry.Capacity = 100
	}
	if c.Registry.EventBuffer == 0 {
		c.Registry.EventBuffer = 1024
	}

	// Notification defaults
	if c.Notifications.Retry.MaxAttempts == 0 {
		c.Notifications.Retry.MaxAttempts = 3
	}
	if c.Notifications.Retry.InitialInterval == 0 {
		c.Notifications.Retry.InitialInterval = 100 * time.Millisecond
	}
	if c.Notifications.Retry.MaxInterval == 0 {
		c.Notifications.Retry.MaxInterval = 5 * time.Second
	}
	if c.Notifications.Retry.Multiplier == 0 {
		c.Notifications.Retry.Multiplier = 2.0
	}
	if c.Notifications.CircuitBreaker.MaxFailures == 0 {
		c.Notifications.CircuitBreaker.MaxFailures = 5
	}
	if c.Notifications.CircuitBreaker.ResetTimeout == 0 {
		c.Notifications.CircuitBreaker.ResetTimeout = 30 * time.Second
	}

	// PagerDuty defaults
	if c.PagerDuty.Source == "" {
		c.PagerDuty.Source = "alarm-engine"
	}
	if c.PagerDuty.ClientName == "" {
		c.PagerDuty.ClientName = "alarm-engine"
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	// Storage defaults
	if c.Storage.Type == "" {
		c.Storage.Type = "memory"
	}
	c.Storage.Type = strings.ToLower(c.Storage.Type)
	if c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = "./data/alarm-engine.db"
	}

	// MySQL defaults
	applyPoolDefaults(&c.Storage.MySQL.Pool)
	if c.Storage.MySQL.Timeout == 0 {
		c.Storage.MySQL.Timeout = 5 * time.Second
	}
	if !c.Storage.MySQL.ParseTime {
		c.Storage.MySQL.ParseTime = true
	}
	if c.Storage.MySQL.Charset == "" {
		c.Storage.MySQL.Charset = "utf8mb4"
	}
	if c.Storage.MySQL.Primary.Port == 0 {
		c.Storage.MySQL.Primary.Port = 3306
	}
	if c.Storage.MySQL.Replica.Port == 0 {
		c.Storage.MySQL.Replica.Port = 3306
	}

	// PostgreSQL defaults
	applyPoolDefaults(&c.Storage.Postgres.Pool)
	if c.Storage.Postgres.Port == 0 {
		c.Storage.Postgres.Port = 5432
	}
	if c.Storage.Postgres.SSLMode == "" {
		c.Storage.Postgres.SSLMode = "disable"
	}
	if c.Storage.Postgres.Timeout == 0 {
		c.Storage.Postgres.Timeout = 5 * time.Second
	}
}

func applyPoolDefaults(p *PoolConfig) {
	if p.MaxOpenConns == 0 {
		p.MaxOpenConns = 25
	}
	if p.MaxIdleConns == 0 {
		p.MaxIdleConns = 5
	}
	if p.ConnMaxLifetime == 0 {
		p.ConnMaxLifetime = 3 * time.Minute
	}
	if p.ConnMaxIdleTime == 0 {
		p.ConnMaxIdleTime = 1 * time.Minute
	}
}

// IsSlackEnabled returns true if Slack integration is enabled.
func (c *Config) IsSlackEnabled() bool {
	return c.Slack.Enabled
}

// IsPagerDutyEnabled returns true if PagerDuty integration is enabled.
func (c *Config) IsPagerDutyEnabled() bool {
	return c.PagerDuty.Enabled
}
