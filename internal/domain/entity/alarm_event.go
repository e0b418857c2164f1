package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies what happened to an alarm.
type EventType string

const (
	EventAlarmTriggered    EventType = "AlarmTriggered"
	EventAlarmReturned     EventType = "AlarmReturned"
	EventAlarmAcknowledged EventType = "AlarmAcknowledged"
	EventAlarmShelved      EventType = "AlarmShelved"
	EventAlarmUnshelved    EventType = "AlarmUnshelved"
	EventAlarmSuppressed   EventType = "AlarmSuppressed"
	EventAlarmUnsuppressed EventType = "AlarmUnsuppressed"
	EventAlarmEnabled      EventType = "AlarmEnabled"
	EventAlarmDisabled     EventType = "AlarmDisabled"
	EventCapacityExceeded  EventType = "CapacityExceeded"
)

// AllEventTypes returns every event type in lifecycle order.
func AllEventTypes() []EventType {
	return []EventType{
		EventAlarmTriggered,
		EventAlarmReturned,
		EventAlarmAcknowledged,
		EventAlarmShelved,
		EventAlarmUnshelved,
		EventAlarmSuppressed,
		EventAlarmUnsuppressed,
		EventAlarmEnabled,
		EventAlarmDisabled,
		EventCapacityExceeded,
	}
}

// ParseEventType validates an event type name (exact match).
func ParseEventType(s string) (EventType, error) {
	for _, t := range AllEventTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown event type: %q", s)
}

// AlarmEvent records one observable change in the registry.
// It is both the notification payload and the row stored in the alarm journal.
type AlarmEvent struct {
	// ID is the unique identifier for this event.
	ID string

	// Sequence orders events emitted by one registry instance.
	Sequence uint64

	// Type is what happened.
	Type EventType

	// Tag identifies the alarm. Empty for registry-wide events such as CapacityExceeded.
	Tag Tag

	// Description and Priority are copied from the alarm for self-contained history.
	Description string
	Priority    Priority

	// PreviousState and CurrentState bracket the transition.
	PreviousState State
	CurrentState  State

	// Value is the process value that caused the event, if any.
	Value *float64

	// OccurrenceCount is the alarm's activation count after the event.
	OccurrenceCount int

	// Operator identifies who issued the command. Empty for process-driven events.
	Operator string

	// TotalActive and Capacity are the registry aggregates after the event.
	TotalActive int
	Capacity    int

	// OccurredAt is when the registry observed the change.
	OccurredAt time.Time
}

// NewAlarmEvent creates an event for an alarm transition.
func NewAlarmEvent(eventType EventType, alarm AlarmSnapshot, outcome TransitionOutcome, occurredAt time.Time) *AlarmEvent {
	return &AlarmEvent{
		ID:              uuid.New().String(),
		Type:            eventType,
		Tag:             alarm.Tag,
		Description:     alarm.Description,
		Priority:        alarm.Priority,
		PreviousState:   outcome.Previous,
		CurrentState:    outcome.Current,
		OccurrenceCount: alarm.OccurrenceCount,
		OccurredAt:      occurredAt.UTC(),
	}
}

// NewCapacityExceededEvent creates the registry-wide event raised when the
// number of active alarms rises above the configured capacity.
func NewCapacityExceededEvent(totalActive, capacity int, occurredAt time.Time) *AlarmEvent {
	return &AlarmEvent{
		ID:          uuid.New().String(),
		Type:        EventCapacityExceeded,
		TotalActive: totalActive,
		Capacity:    capacity,
		OccurredAt:  occurredAt.UTC(),
	}
}

// WithValue attaches the triggering process value.
func (e *AlarmEvent) WithValue(value float64) *AlarmEvent {
	e.Value = &value
	return e
}

// WithOperator attributes the event to an operator.
func (e *AlarmEvent) WithOperator(operator string) *AlarmEvent {
	e.Operator = operator
	return e
}

// WithAggregates records the registry totals after the change.
func (e *AlarmEvent) WithAggregates(totalActive, capacity int) *AlarmEvent {
	e.TotalActive = totalActive
	e.Capacity = capacity
	return e
}

// IsRegistryEvent reports whether the event concerns the registry rather than one alarm.
func (e *AlarmEvent) IsRegistryEvent() bool {
	return e.Tag == ""
}

// Clone returns a deep copy of the event.
func (e *AlarmEvent) Clone() *AlarmEvent {
	c := *e
	if e.Value != nil {
		v := *e.Value
		c.Value = &v
	}
	return &c
}
