package config

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
)

// reloadableKeys defines the whitelist of configuration keys that can be hot-reloaded.
var reloadableKeys = map[string]bool{
	"logging.level":     true,
	"logging.format":    true,
	"registry.capacity": true,
}

// staticKeys maps configuration key prefixes that require an application restart
// to the reason shown to the operator.
var staticKeys = map[string]string{
	"server":                "HTTP listener restart required",
	"storage":               "Storage backend initialization required",
	"alarms":                "Alarm registry is built once at startup",
	"registry.event_buffer": "Dispatcher queue is allocated once at startup",
	"slack":                 "Notifier recreation required",
	"pagerduty":             "Notifier recreation required",
	"notifications":         "Notifier recreation required",
	"auth":                  "Router middleware is built once at startup",
}

// IsReloadable returns true if the given config key can be hot-reloaded.
func IsReloadable(key string) bool {
	return reloadableKeys[key]
}

// getRestartReason returns the reason why a static config key requires restart.
func getRestartReason(key string) string {
	best := ""
	for prefix := range staticKeys {
		if (key == prefix || strings.HasPrefix(key, prefix+".")) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return staticKeys[best]
	}
	return "unknown configuration requires restart"
}

// ValidateLogLevel checks if the log level is valid.
func ValidateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}
	return nil
}

// ValidateLogFormat checks if the log format is valid.
func ValidateLogFormat(format string) error {
	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[strings.ToLower(format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", format)
	}
	return nil
}

// ValidateNonEmpty checks if a string is non-empty.
func ValidateNonEmpty(value string, fieldName string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

// ValidateDuration checks if a duration is greater than zero.
func ValidateDuration(duration time.Duration, fieldName string) error {
	if duration <= 0 {
		return fmt.Errorf("%s must be greater than 0", fieldName)
	}
	return nil
}

// ValidatePort checks if a port number is valid.
func ValidatePort(port int, fieldName string) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", fieldName, port)
	}
	return nil
}

// ValidateStorageType checks if the storage type is valid.
func ValidateStorageType(storageType string) error {
	validTypes := map[string]bool{
		"memory":   true,
		"sqlite":   true,
		"mysql":    true,
		"postgres": true,
	}
	if !validTypes[storageType] {
		return fmt.Errorf("invalid storage type: %s (must be memory, sqlite, mysql, or postgres)", storageType)
	}
	return nil
}

// Validate performs comprehensive validation on the configuration.
// Every problem found is reported, not only the first.
func (c *Config) Validate() error {
	var errors []string
	check := func(err error) {
		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	// Server validation
	check(ValidatePort(c.Server.Port, "server.port"))
	check(ValidateDuration(c.Server.ReadTimeout, "server.read_timeout"))
	check(ValidateDuration(c.Server.WriteTimeout, "server.write_timeout"))
	check(ValidateDuration(c.Server.RequestTimeout, "server.request_timeout"))
	check(ValidateDuration(c.Server.ShutdownTimeout, "server.shutdown_timeout"))
	if c.Server.RequestTimeout >= c.Server.WriteTimeout {
		errors = append(errors, "server.request_timeout must be less than server.write_timeout")
	}

	// Storage validation
	check(ValidateStorageType(c.Storage.Type))
	switch c.Storage.Type {
	case "sqlite":
		check(ValidateNonEmpty(c.Storage.SQLite.Path, "storage.sqlite.path"))
	case "mysql":
		errors = append(errors, validateInstance(c.Storage.MySQL.Primary, "storage.mysql.primary")...)
		if c.Storage.MySQL.Replica.Enabled {
			errors = append(errors, validateInstance(c.Storage.MySQL.Replica.DatabaseInstanceConfig, "storage.mysql.replica")...)
		}
		errors = append(errors, validatePool(c.Storage.MySQL.Pool, "storage.mysql.pool")...)
	case "postgres":
		errors = append(errors, validateInstance(c.Storage.Postgres.DatabaseInstanceConfig, "storage.postgres")...)
		errors = append(errors, validatePool(c.Storage.Postgres.Pool, "storage.postgres.pool")...)
	}

	// Registry validation
	if c.Registry.Capacity < 1 {
		errors = append(errors, "registry.capacity must be at least 1")
	}
	if c.Registry.EventBuffer < 1 {
		errors = append(errors, "registry.event_buffer must be at least 1")
	}

	// Alarm validation
	errors = append(errors, c.validateAlarms()...)

	// Slack validation
	if c.IsSlackEnabled() {
		check(ValidateNonEmpty(c.Slack.BotToken, "slack.bot_token"))
		check(ValidateNonEmpty(c.Slack.ChannelID, "slack.channel_id"))
		if c.Slack.SocketMode.Enabled {
			check(ValidateNonEmpty(c.Slack.SocketMode.AppToken, "slack.socket_mode.app_token"))
		}
	}

	// PagerDuty validation
	if c.IsPagerDutyEnabled() {
		check(ValidateNonEmpty(c.PagerDuty.RoutingKey, "pagerduty.routing_key"))
	}

	// Notification validation
	if c.Notifications.Retry.MaxAttempts < 1 {
		errors = append(errors, "notifications.retry.max_attempts must be at least 1")
	}
	check(ValidateDuration(c.Notifications.Retry.InitialInterval, "notifications.retry.initial_interval"))
	if c.Notifications.Retry.MaxInterval < c.Notifications.Retry.InitialInterval {
		errors = append(errors, "notifications.retry.max_interval cannot be less than initial_interval")
	}
	if c.Notifications.Retry.JitterFactor < 0 || c.Notifications.Retry.JitterFactor > 1 {
		errors = append(errors, "notifications.retry.jitter_factor must be between 0 and 1")
	}
	if c.Notifications.CircuitBreaker.Enabled {
		if c.Notifications.CircuitBreaker.MaxFailures < 1 {
			errors = append(errors, "notifications.circuit_breaker.max_failures must be at least 1")
		}
		check(ValidateDuration(c.Notifications.CircuitBreaker.ResetTimeout, "notifications.circuit_breaker.reset_timeout"))
	}

	// Auth validation
	if c.Auth.Enabled && len(c.Auth.JWTSecret) < 32 {
		errors = append(errors, "auth.jwt_secret must be at least 32 bytes when auth is enabled")
	}

	// Logging validation
	check(ValidateLogLevel(c.Logging.Level))
	check(ValidateLogFormat(c.Logging.Format))

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", joinErrors(errors))
	}

	return nil
}

func (c *Config) validateAlarms() []string {
	var errors []string
	seen := make(map[string]int, len(c.Alarms))

	for i, a := range c.Alarms {
		field := fmt.Sprintf("alarms[%d]", i)

		tag, err := entity.ParseTag(a.Tag)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s.tag: %v", field, err))
		} else if first, dup := seen[tag.String()]; dup {
			errors = append(errors, fmt.Sprintf("%s.tag: duplicate tag %s (first defined at alarms[%d])", field, tag, first))
		} else {
			seen[tag.String()] = i
		}

		if _, err := entity.ParsePriority(a.Priority); err != nil {
			errors = append(errors, fmt.Sprintf("%s.priority: %v", field, err))
		}
		if math.IsNaN(a.Setpoint) || math.IsInf(a.Setpoint, 0) {
			errors = append(errors, fmt.Sprintf("%s.setpoint must be a finite number", field))
		}
		if a.Deadband < 0 || math.IsNaN(a.Deadband) || math.IsInf(a.Deadband, 0) {
			errors = append(errors, fmt.Sprintf("%s.deadband must be a finite number >= 0", field))
		}
	}

	return errors
}

func validateInstance(inst DatabaseInstanceConfig, prefix string) []string {
	var errors []string
	for _, err := range []error{
		ValidateNonEmpty(inst.Host, prefix+".host"),
		ValidatePort(inst.Port, prefix+".port"),
		ValidateNonEmpty(inst.Database, prefix+".database"),
		ValidateNonEmpty(inst.Username, prefix+".username"),
		ValidateNonEmpty(inst.Password, prefix+".password"),
	} {
		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

func validatePool(p PoolConfig, prefix string) []string {
	var errors []string
	if p.MaxOpenConns < 1 {
		errors = append(errors, prefix+".max_open_conns must be at least 1")
	}
	if p.MaxIdleConns < 0 {
		errors = append(errors, prefix+".max_idle_conns cannot be negative")
	}
	if p.MaxIdleConns > p.MaxOpenConns {
		errors = append(errors, prefix+".max_idle_conns cannot exceed max_open_conns")
	}
	return errors
}

// joinErrors joins multiple error messages with newlines and bullets.
func joinErrors(errors []string) string {
	return strings.Join(errors, "\n  - ")
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
