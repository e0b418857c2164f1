package alarm

import (
	"fmt"
	"sync"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/alarm-engine/internal/domain/errors"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
)

// Registry owns every configured alarm and the active-alarm aggregates.
//
// A single mutex covers the whole locate, mutate, reconcile and publish
// sequence, so an operation on one tag is atomic with respect to all others
// and events reach the publisher in the order the mutations happened.
type Registry struct {
	mu       sync.Mutex
	alarms   map[entity.Tag]*entity.AlarmRecord
	order    []entity.Tag
	summary  entity.AlarmSummary
	sequence uint64

	clock     Clock
	publisher EventPublisher
	logger    logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		alarms:    make(map[entity.Tag]*entity.AlarmRecord),
		summary:   entity.NewAlarmSummary(DefaultCapacity),
		clock:     systemClock{},
		publisher: EventPublisherFunc(func(*entity.AlarmEvent) {}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a copy of record. Registration order is kept for every listing.
// A record that is already active (e.g. configured shelved) is counted at once.
// Later changes to record do not reach the registry.
func (r *Registry) Register(record *entity.AlarmRecord) error {
	if record == nil {
		return fmt.Errorf("registering alarm: nil record")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tag := record.Tag()
	if _, exists := r.alarms[tag]; exists {
		return domainerrors.NewDuplicateTagError(tag.String())
	}

	owned := record.Clone()
	r.alarms[tag] = owned
	r.order = append(r.order, tag)

	wasExceeded := r.summary.CapacityExceeded()
	r.reconcile(owned.Priority(), false, owned.IsActive())
	r.checkCapacity(wasExceeded, r.clock.Now())
	return nil
}

// UpdateProcessValue feeds one fresh sample to the alarm identified by tag.
func (r *Registry) UpdateProcessValue(tag entity.Tag, value float64) (entity.TransitionOutcome, error) {
	return r.mutate(tag, operation{
		name:  "update process value",
		value: &value,
		apply: func(a *entity.AlarmRecord, now time.Time) entity.TransitionOutcome {
			return a.Evaluate(value, now)
		},
		eventType: func(out entity.TransitionOutcome) entity.EventType {
			switch {
			case out.Activation:
				return entity.EventAlarmTriggered
			case out.Returned():
				return entity.EventAlarmReturned
			}
			return ""
		},
	})
}

// Acknowledge records operator acknowledgement. Acknowledging an alarm that
// is not awaiting acknowledgement is not an error.
func (r *Registry) Acknowledge(tag entity.Tag, opts ...CommandOption) (entity.TransitionOutcome, error) {
	return r.command(tag, "acknowledge", entity.EventAlarmAcknowledged, opts,
		func(a *entity.AlarmRecord, now time.Time) entity.TransitionOutcome { return a.Acknowledge(now) })
}

// Shelve shelves the alarm.
func (r *Registry) Shelve(tag entity.Tag, opts ...CommandOption) (entity.TransitionOutcome, error) {
	return r.command(tag, "shelve", entity.EventAlarmShelved, opts,
		func(a *entity.AlarmRecord, _ time.Time) entity.TransitionOutcome { return a.Shelve() })
}

// Unshelve returns a shelved alarm to NORMAL.
func (r *Registry) Unshelve(tag entity.Tag, opts ...CommandOption) (entity.TransitionOutcome, error) {
	return r.command(tag, "unshelve", entity.EventAlarmUnshelved, opts,
		func(a *entity.AlarmRecord, _ time.Time) entity.TransitionOutcome { return a.Unshelve() })
}

// Suppress suppresses the alarm.
func (r *Registry) Suppress(tag entity.Tag, opts ...CommandOption) (entity.TransitionOutcome, error) {
	return r.command(tag, "suppress", entity.EventAlarmSuppressed, opts,
		func(a *entity.AlarmRecord, _ time.Time) entity.TransitionOutcome { return a.Suppress() })
}

// Unsuppress lifts suppression.
func (r *Registry) Unsuppress(tag entity.Tag, opts ...CommandOption) (entity.TransitionOutcome, error) {
	return r.command(tag, "unsuppress", entity.EventAlarmUnsuppressed, opts,
		func(a *entity.AlarmRecord, _ time.Time) entity.TransitionOutcome { return a.Unsuppress() })
}

// SetEnabled takes the alarm in or out of service.
func (r *Registry) SetEnabled(tag entity.Tag, enabled bool, opts ...CommandOption) (entity.TransitionOutcome, error) {
	name, eventType := "enable", entity.EventAlarmEnabled
	if !enabled {
		name, eventType = "disable", entity.EventAlarmDisabled
	}
	return r.command(tag, name, eventType, opts,
		func(a *entity.AlarmRecord, _ time.Time) entity.TransitionOutcome { return a.SetEnabled(enabled) })
}

// ActiveAlarms returns snapshots of every active alarm in registration order.
func (r *Registry) ActiveAlarms() []entity.AlarmSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := make([]entity.AlarmSnapshot, 0, r.summary.TotalActive)
	for _, tag := range r.order {
		if a := r.alarms[tag]; a.IsActive() {
			active = append(active, a.Snapshot())
		}
	}
	return active
}

// Alarms returns snapshots of every registered alarm in registration order.
func (r *Registry) Alarms() []entity.AlarmSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]entity.AlarmSnapshot, 0, len(r.order))
	for _, tag := range r.order {
		all = append(all, r.alarms[tag].Snapshot())
	}
	return all
}

// Alarm returns a snapshot of one alarm.
func (r *Registry) Alarm(tag entity.Tag) (entity.AlarmSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alarms[tag]
	if !ok {
		return entity.AlarmSnapshot{}, domainerrors.NewUnknownTagError(tag.String())
	}
	return a.Snapshot(), nil
}

// Summary returns a copy of the aggregates.
func (r *Registry) Summary() entity.AlarmSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.summary.Clone()
}

// Len returns the number of registered alarms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.order)
}

// SetCapacity changes the informational capacity threshold.
func (r *Registry) SetCapacity(capacity int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if capacity == r.summary.Capacity {
		return
	}
	wasExceeded := r.summary.CapacityExceeded()
	r.logger.Info("alarm capacity changed",
		"previous", r.summary.Capacity,
		"capacity", capacity,
	)
	r.summary.Capacity = capacity
	r.checkCapacity(wasExceeded, r.clock.Now())
}

type operation struct {
	name      string
	value     *float64
	operator  string
	apply     func(a *entity.AlarmRecord, now time.Time) entity.TransitionOutcome
	eventType func(out entity.TransitionOutcome) entity.EventType
}

func (r *Registry) command(
	tag entity.Tag,
	name string,
	eventType entity.EventType,
	opts []CommandOption,
	apply func(a *entity.AlarmRecord, now time.Time) entity.TransitionOutcome,
) (entity.TransitionOutcome, error) {
	cfg := newCommandConfig(opts)
	return r.mutate(tag, operation{
		name:     name,
		operator: cfg.operator,
		apply:    apply,
		eventType: func(out entity.TransitionOutcome) entity.EventType {
			if !out.Changed {
				return ""
			}
			return eventType
		},
	})
}

func (r *Registry) mutate(tag entity.Tag, op operation) (entity.TransitionOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alarms[tag]
	if !ok {
		r.logger.Debug("alarm command for unknown tag",
			"operation", op.name,
			"tag", tag,
		)
		return entity.TransitionOutcome{}, domainerrors.NewUnknownTagError(tag.String())
	}

	now := r.clock.Now()
	wasActive := a.IsActive()
	wasExceeded := r.summary.CapacityExceeded()

	out := op.apply(a, now)
	r.reconcile(a.Priority(), wasActive, a.IsActive())

	if eventType := op.eventType(out); eventType != "" {
		event := entity.NewAlarmEvent(eventType, a.Snapshot(), out, now).
			WithOperator(op.operator).
			WithAggregates(r.summary.TotalActive, r.summary.Capacity)
		if op.value != nil {
			event.WithValue(*op.value)
		}
		r.publish(event)
	}
	r.checkCapacity(wasExceeded, now)

	return out, nil
}

// reconcile applies the signed change in active membership to the aggregates.
// It is the only place the aggregates are written.
func (r *Registry) reconcile(priority entity.Priority, wasActive, isActive bool) {
	delta := 0
	switch {
	case !wasActive && isActive:
		delta = 1
	case wasActive && !isActive:
		delta = -1
	}
	if delta == 0 {
		return
	}
	r.summary.TotalActive += delta
	r.summary.CountsByPriority[priority] += delta
}

func (r *Registry) checkCapacity(wasExceeded bool, now time.Time) {
	if wasExceeded || !r.summary.CapacityExceeded() {
		return
	}
	r.logger.Warn("active alarm capacity exceeded",
		"total_active", r.summary.TotalActive,
		"capacity", r.summary.Capacity,
	)
	r.publish(entity.NewCapacityExceededEvent(r.summary.TotalActive, r.summary.Capacity, now))
}

func (r *Registry) publish(event *entity.AlarmEvent) {
	r.sequence++
	event.Sequence = r.sequence
	r.publisher.Publish(event)
}
