package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
)

// ErrRequiresRestart is returned by TryReload when the file changed a key
// that cannot be applied to a running process. Nothing is applied in that case.
var ErrRequiresRestart = errors.New("configuration change requires restart")

// ReloadFunc is called after a successful reload with the previous and new config.
type ReloadFunc func(old, next *Config)

// ConfigManager owns the live configuration and reloads it when the file changes.
type ConfigManager struct {
	mu        sync.RWMutex
	path      string
	current   *Config
	settings  map[string]any
	v         *viper.Viper
	callbacks []ReloadFunc
	logger    logger.Logger
}

// NewConfigManager creates a manager for the file at path, starting from initial.
func NewConfigManager(path string, initial *Config, log logger.Logger) (*ConfigManager, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config for watch: %w", err)
	}

	return &ConfigManager{
		path:     path,
		current:  initial,
		settings: snapshotSettings(v),
		v:        v,
		logger:   log,
	}, nil
}

// Get returns the current configuration. Callers must not modify it.
func (m *ConfigManager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// OnReload registers fn to run after every applied reload.
func (m *ConfigManager) OnReload(fn ReloadFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Watch starts watching the config file and reloads on every write.
func (m *ConfigManager) Watch() {
	m.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		m.logger.Info("config file changed", "file", e.Name, "op", e.Op.String())

		if err := m.TryReload(); err != nil && !errors.Is(err, ErrRequiresRestart) {
			m.logger.Error("config reload failed", "error", err)
		}
	})
	m.v.WatchConfig()
	m.logger.Info("watching config file", "path", m.path)
}

// TryReload re-reads the file. Reloadable changes are validated and applied;
// if any other key changed the reload is refused with ErrRequiresRestart.
func (m *ConfigManager) TryReload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	next := snapshotSettings(m.v)

	changed := changedKeys(m.settings, next)
	if len(changed) == 0 {
		m.logger.Debug("config reload: no changes")
		return nil
	}

	var static []string
	for _, key := range changed {
		if !IsReloadable(key) {
			static = append(static, key)
		}
	}
	if len(static) > 0 {
		for _, key := range static {
			m.logger.Warn("config change requires restart",
				"key", key,
				"reason", getRestartReason(key),
			)
		}
		return ErrRequiresRestart
	}

	cfg, err := load(m.path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating reloaded config: %w", err)
	}

	old := m.current
	m.current = cfg
	m.settings = next

	m.logger.Info("configuration reloaded", "changed_keys", changed)
	for _, fn := range m.callbacks {
		fn(old, cfg)
	}
	return nil
}

func snapshotSettings(v *viper.Viper) map[string]any {
	settings := make(map[string]any)
	for _, key := range v.AllKeys() {
		settings[key] = v.Get(key)
	}
	return settings
}

// changedKeys returns every key added, removed or modified between a and b.
func changedKeys(a, b map[string]any) []string {
	diff := make(map[string]struct{})
	for k, av := range a {
		if bv, ok := b[k]; !ok || !reflect.DeepEqual(av, bv) {
			diff[k] = struct{}{}
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			diff[k] = struct{}{}
		}
	}
	return sortedKeys(diff)
}
