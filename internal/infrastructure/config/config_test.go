package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 9090
registry:
  capacity: 50
alarms:
  - tag: TT101
    description: Reactor Temperature High
    priority: HIGH
    setpoint: 150
    deadband: 2
  - tag: LT404
    description: Tank Level High
    priority: low
    setpoint: 80
    deadband: 3
    enabled: false
storage:
  type: sqlite
  sqlite:
    path: ${ALARM_TEST_DB}
logging:
  level: debug
  format: text
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("ALARM_TEST_DB", "/tmp/alarms.db")
	path := writeConfig(t, sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Registry.Capacity)
	assert.Equal(t, 1024, cfg.Registry.EventBuffer)
	assert.Equal(t, "/tmp/alarms.db", cfg.Storage.SQLite.Path)
	require.Len(t, cfg.Alarms, 2)
	assert.Equal(t, "TT101", cfg.Alarms[0].Tag)
	assert.Equal(t, 150.0, cfg.Alarms[0].Setpoint)
	assert.True(t, cfg.Alarms[0].IsEnabled())
	assert.False(t, cfg.Alarms[1].IsEnabled())
	assert.Equal(t, 3, cfg.Notifications.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Notifications.CircuitBreaker.ResetTimeout)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Registry.Capacity)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 5432, cfg.Storage.Postgres.Port)
	assert.Empty(t, cfg.Alarms)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ALARM_CAPACITY", "7")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("STORAGE_TYPE", "Memory")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Registry.Capacity)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "memory", cfg.Storage.Type)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Alarms: []AlarmConfig{
			{Tag: "TT101", Priority: "HIGH", Setpoint: 1},
			{Tag: "TT101", Priority: "URGENT", Setpoint: 1, Deadband: -1},
			{Tag: "", Priority: "LOW"},
		},
		Slack: SlackConfig{Enabled: true, SocketMode: SocketModeConfig{Enabled: true}},
		Auth:  AuthConfig{Enabled: true, JWTSecret: "short"},
	}
	cfg.applyDefaults()

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "alarms[1].tag: duplicate tag TT101")
	assert.Contains(t, msg, "alarms[1].priority")
	assert.Contains(t, msg, "alarms[1].deadband")
	assert.Contains(t, msg, "alarms[2].tag")
	assert.Contains(t, msg, "slack.bot_token cannot be empty")
	assert.Contains(t, msg, "slack.socket_mode.app_token cannot be empty")
	assert.Contains(t, msg, "auth.jwt_secret")
}

func TestValidate_Storage(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown type", func(c *Config) { c.Storage.Type = "redis" }, "invalid storage type"},
		{"mysql requires host", func(c *Config) { c.Storage.Type = "mysql" }, "storage.mysql.primary.host"},
		{"postgres requires database", func(c *Config) { c.Storage.Type = "postgres" }, "storage.postgres.database"},
		{"request timeout vs write timeout", func(c *Config) { c.Server.RequestTimeout = time.Hour }, "server.request_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.applyDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRestartReason(t *testing.T) {
	assert.True(t, IsReloadable("registry.capacity"))
	assert.False(t, IsReloadable("registry.event_buffer"))
	assert.Equal(t, "Dispatcher queue is allocated once at startup", getRestartReason("registry.event_buffer"))
	assert.Equal(t, "Storage backend initialization required", getRestartReason("storage.mysql.primary.host"))
	assert.Equal(t, "unknown configuration requires restart", getRestartReason("whatever"))
}
