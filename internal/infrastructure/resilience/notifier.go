package resilience

import (
	"context"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
	"github.com/qj0r9j0vc2/alarm-engine/internal/usecase/alarm"
)

// Notifier guards another alarm.Notifier with a circuit breaker.
type Notifier struct {
	next    alarm.Notifier
	breaker *CircuitBreaker
	logger  logger.Logger
}

// NewNotifier wraps next with a breaker named after the notifier.
func NewNotifier(next alarm.Notifier, maxFailures int, resetTimeout time.Duration, log logger.Logger) *Notifier {
	return &Notifier{
		next:    next,
		breaker: NewCircuitBreaker(next.Name(), maxFailures, resetTimeout),
		logger:  log,
	}
}

// Notify forwards to the wrapped notifier unless the circuit is open.
func (n *Notifier) Notify(ctx context.Context, event *entity.AlarmEvent) (string, error) {
	var messageID string
	err := n.execute(ctx, func() error {
		var err error
		messageID, err = n.next.Notify(ctx, event)
		return err
	})
	return messageID, err
}

// UpdateMessage forwards to the wrapped notifier unless the circuit is open.
func (n *Notifier) UpdateMessage(ctx context.Context, messageID string, event *entity.AlarmEvent) error {
	return n.execute(ctx, func() error {
		return n.next.UpdateMessage(ctx, messageID, event)
	})
}

// Name returns the wrapped notifier name.
func (n *Notifier) Name() string {
	return n.next.Name()
}

// Breaker exposes the underlying circuit breaker.
func (n *Notifier) Breaker() *CircuitBreaker {
	return n.breaker
}

func (n *Notifier) execute(ctx context.Context, fn func() error) error {
	before := n.breaker.State()
	err := n.breaker.Execute(ctx, fn)
	if after := n.breaker.State(); after != before {
		n.logger.Warn("circuit breaker state changed",
			"notifier", n.Name(),
			"from", before.String(),
			"to", after.String(),
			"failures", n.breaker.Failures(),
		)
	}
	return err
}
