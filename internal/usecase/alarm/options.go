package alarm

import (
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
)

// DefaultCapacity is the active-alarm threshold used when none is configured.
const DefaultCapacity = 100

// Option configures a Registry.
type Option func(*Registry)

// WithCapacity sets the informational active-alarm capacity.
func WithCapacity(capacity int) Option {
	return func(r *Registry) {
		r.summary.Capacity = capacity
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock Clock) Option {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithPublisher sets where events go. Without it events are discarded.
func WithPublisher(publisher EventPublisher) Option {
	return func(r *Registry) {
		if publisher != nil {
			r.publisher = publisher
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// CommandOption annotates an operator command.
type CommandOption func(*commandConfig)

type commandConfig struct {
	operator string
}

// ByOperator attributes the command, and the event it produces, to an operator.
func ByOperator(operator string) CommandOption {
	return func(c *commandConfig) {
		c.operator = operator
	}
}

func newCommandConfig(opts []CommandOption) commandConfig {
	var cfg commandConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
