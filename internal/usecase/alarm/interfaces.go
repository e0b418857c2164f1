package alarm

import (
	"context"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
)

// Notifier defines the contract for sending alarm notifications.
// New notification channels implement this interface.
type Notifier interface {
	// Notify announces a new alarm occurrence (or a registry-wide event).
	// Returns a channel-specific message ID for later updates.
	Notify(ctx context.Context, event *entity.AlarmEvent) (messageID string, err error)

	// UpdateMessage reflects a later lifecycle change on an existing notification.
	UpdateMessage(ctx context.Context, messageID string, event *entity.AlarmEvent) error

	// Name returns the notifier identifier (e.g., "slack", "pagerduty").
	Name() string
}

// EventPublisher receives every event the registry emits, in order.
// Publish is called with the registry lock held and must not block.
type EventPublisher interface {
	Publish(event *entity.AlarmEvent)
}

// EventPublisherFunc adapts a function to EventPublisher.
type EventPublisherFunc func(event *entity.AlarmEvent)

// Publish calls f(event).
func (f EventPublisherFunc) Publish(event *entity.AlarmEvent) { f(event) }

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f().
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// MetricsRecorder receives use case measurements. The observability
// package provides the OpenTelemetry implementation.
type MetricsRecorder interface {
	RecordProcessValue(ctx context.Context, tag string, outcome string)
	RecordAlarmEvent(ctx context.Context, eventType, priority string)
	RecordNotificationSent(ctx context.Context, notifier string, success bool)
}

type noopMetrics struct{}

func (noopMetrics) RecordProcessValue(context.Context, string, string)   {}
func (noopMetrics) RecordAlarmEvent(context.Context, string, string)     {}
func (noopMetrics) RecordNotificationSent(context.Context, string, bool) {}
