package entity

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidSetpoint is returned when a setpoint is NaN or infinite.
	ErrInvalidSetpoint = errors.New("setpoint must be a finite number")

	// ErrInvalidDeadband is returned when a deadband is negative, NaN or infinite.
	ErrInvalidDeadband = errors.New("deadband must be a finite number >= 0")
)

// AlarmRecord holds one alarm's configuration and lifecycle state.
//
// The identity (tag, description, priority, setpoint, deadband) is fixed at
// construction. The lifecycle fields change only through the transition
// methods, which take the current time from the caller and perform no I/O.
// AlarmRecord is not safe for concurrent use; the registry serialises access.
type AlarmRecord struct {
	tag         Tag
	description string
	priority    Priority
	setpoint    float64
	deadband    float64

	state              State
	enabled            bool
	suppressed         bool
	shelved            bool
	triggeredAt        *time.Time
	lastAcknowledgedAt *time.Time
	occurrenceCount    int
}

// NewAlarmRecord creates an enabled alarm in the NORMAL state.
func NewAlarmRecord(tag, description string, priority Priority, setpoint, deadband float64) (*AlarmRecord, error) {
	t, err := ParseTag(tag)
	if err != nil {
		return nil, err
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPriority, int(priority))
	}
	if math.IsNaN(setpoint) || math.IsInf(setpoint, 0) {
		return nil, ErrInvalidSetpoint
	}
	if math.IsNaN(deadband) || math.IsInf(deadband, 0) || deadband < 0 {
		return nil, ErrInvalidDeadband
	}

	return &AlarmRecord{
		tag:         t,
		description: description,
		priority:    priority,
		setpoint:    setpoint,
		deadband:    deadband,
		state:       StateNormal,
		enabled:     true,
	}, nil
}

// Evaluate checks a fresh process value against the trigger and clear limits.
//
// Nothing happens while the alarm is disabled, suppressed or shelved. A value at
// or above the setpoint activates a NORMAL alarm. A value strictly below
// setpoint-deadband returns an active alarm to RETURNED_UNACKNOWLEDGED. NaN
// compares false against both limits and never causes a transition.
func (a *AlarmRecord) Evaluate(value float64, now time.Time) TransitionOutcome {
	previous := a.state

	if !a.enabled || a.suppressed || a.shelved {
		return TransitionOutcome{Previous: previous, Current: a.state}
	}

	switch {
	case value >= a.setpoint && a.state == StateNormal:
		a.state = StateUnacknowledged
		a.triggeredAt = timeRef(now)
		a.occurrenceCount++
		return TransitionOutcome{Previous: previous, Current: a.state, Activation: true, Changed: true}

	case value < a.setpoint-a.deadband &&
		(a.state == StateAcknowledged || a.state == StateUnacknowledged):
		a.state = StateReturnedUnacknowledged
		return TransitionOutcome{Previous: previous, Current: a.state, Changed: true}
	}

	return TransitionOutcome{Previous: previous, Current: a.state}
}

// Acknowledge records operator acknowledgement. UNACKNOWLEDGED moves to
// ACKNOWLEDGED and RETURNED_UNACKNOWLEDGED moves to NORMAL. In any other state
// the call is ignored.
func (a *AlarmRecord) Acknowledge(now time.Time) TransitionOutcome {
	previous := a.state

	switch a.state {
	case StateUnacknowledged:
		a.state = StateAcknowledged
	case StateReturnedUnacknowledged:
		a.state = StateNormal
	default:
		return TransitionOutcome{Previous: previous, Current: a.state}
	}

	a.lastAcknowledgedAt = timeRef(now)
	return TransitionOutcome{Previous: previous, Current: a.state, Changed: true}
}

// Shelve moves the alarm to SHELVED from any state except OUT_OF_SERVICE.
// Whether the alarm was acknowledged before shelving is not retained.
func (a *AlarmRecord) Shelve() TransitionOutcome {
	previous := a.state
	if a.state == StateOutOfService {
		return TransitionOutcome{Previous: previous, Current: a.state}
	}

	changed := !a.shelved || a.state != StateShelved
	a.shelved = true
	a.state = StateShelved
	return TransitionOutcome{Previous: previous, Current: a.state, Changed: changed}
}

// Unshelve returns a SHELVED alarm to NORMAL. It never restores the state held
// before shelving; a later Evaluate re-detects any standing condition.
func (a *AlarmRecord) Unshelve() TransitionOutcome {
	previous := a.state
	if a.state != StateShelved {
		return TransitionOutcome{Previous: previous, Current: a.state}
	}

	a.shelved = false
	a.state = StateNormal
	return TransitionOutcome{Previous: previous, Current: a.state, Changed: true}
}

// Suppress sets the suppressed flag. The state becomes SUPPRESSED unless the
// alarm is OUT_OF_SERVICE or SHELVED, in which case only the flag changes.
// A SHELVED alarm stays SHELVED so that the shelved flag and the SHELVED state
// always agree; unshelving it later lands in NORMAL with the flag still set.
func (a *AlarmRecord) Suppress() TransitionOutcome {
	previous := a.state
	changed := !a.suppressed
	a.suppressed = true

	if a.state != StateOutOfService && a.state != StateShelved && a.state != StateSuppressed {
		a.state = StateSuppressed
		changed = true
	}
	return TransitionOutcome{Previous: previous, Current: a.state, Changed: changed}
}

// Unsuppress clears the suppressed flag and returns a SUPPRESSED alarm to NORMAL.
func (a *AlarmRecord) Unsuppress() TransitionOutcome {
	previous := a.state
	changed := a.suppressed
	a.suppressed = false

	if a.state == StateSuppressed {
		a.state = StateNormal
		changed = true
	}
	return TransitionOutcome{Previous: previous, Current: a.state, Changed: changed}
}

// SetEnabled takes the alarm in or out of service.
//
// Disabling forces OUT_OF_SERVICE from any state and clears the shelved flag.
// Enabling an OUT_OF_SERVICE alarm returns it to NORMAL without re-evaluating
// the process value.
func (a *AlarmRecord) SetEnabled(enabled bool) TransitionOutcome {
	previous := a.state
	changed := a.enabled != enabled
	a.enabled = enabled

	if !enabled {
		if a.state != StateOutOfService || a.shelved {
			changed = true
		}
		a.state = StateOutOfService
		a.shelved = false
	} else if a.state == StateOutOfService {
		a.state = StateNormal
		changed = true
	}
	return TransitionOutcome{Previous: previous, Current: a.state, Changed: changed}
}

// IsActive reports whether the alarm counts toward the active-alarm aggregates.
func (a *AlarmRecord) IsActive() bool {
	return a.state.CountsAsActive()
}

// Tag returns the alarm's unique identifier.
func (a *AlarmRecord) Tag() Tag { return a.tag }

// Description returns the human-readable alarm text.
func (a *AlarmRecord) Description() string { return a.description }

// Priority returns the configured priority.
func (a *AlarmRecord) Priority() Priority { return a.priority }

// Setpoint returns the trigger threshold.
func (a *AlarmRecord) Setpoint() float64 { return a.setpoint }

// Deadband returns the clear margin below the setpoint.
func (a *AlarmRecord) Deadband() float64 { return a.deadband }

// State returns the current lifecycle state.
func (a *AlarmRecord) State() State { return a.state }

// Enabled reports whether the alarm is in service.
func (a *AlarmRecord) Enabled() bool { return a.enabled }

// Suppressed reports whether the suppressed flag is set.
func (a *AlarmRecord) Suppressed() bool { return a.suppressed }

// Shelved reports whether the shelved flag is set.
func (a *AlarmRecord) Shelved() bool { return a.shelved }

// OccurrenceCount returns how many times the alarm has activated.
func (a *AlarmRecord) OccurrenceCount() int { return a.occurrenceCount }

// Clone returns an independent copy of the record, including its timestamps.
func (a *AlarmRecord) Clone() *AlarmRecord {
	c := *a
	c.triggeredAt = copyTime(a.triggeredAt)
	c.lastAcknowledgedAt = copyTime(a.lastAcknowledgedAt)
	return &c
}

// Snapshot returns a copy of every field that is safe to share.
func (a *AlarmRecord) Snapshot() AlarmSnapshot {
	return AlarmSnapshot{
		Tag:                a.tag,
		Description:        a.description,
		Priority:           a.priority,
		Setpoint:           a.setpoint,
		Deadband:           a.deadband,
		State:              a.state,
		Enabled:            a.enabled,
		Suppressed:         a.suppressed,
		Shelved:            a.shelved,
		TriggeredAt:        copyTime(a.triggeredAt),
		LastAcknowledgedAt: copyTime(a.lastAcknowledgedAt),
		OccurrenceCount:    a.occurrenceCount,
	}
}

// AlarmSnapshot is a point-in-time copy of an AlarmRecord.
type AlarmSnapshot struct {
	// Tag is the alarm's unique identifier.
	Tag Tag

	// Description is the human-readable alarm text.
	Description string

	// Priority is the configured priority.
	Priority Priority

	// Setpoint is the value at or above which the alarm activates.
	Setpoint float64

	// Deadband is the margin below the setpoint the value must cross to clear.
	Deadband float64

	// State is the lifecycle state at the time of the snapshot.
	State State

	// Enabled, Suppressed and Shelved are the operator modifiers.
	Enabled    bool
	Suppressed bool
	Shelved    bool

	// TriggeredAt is when the alarm last activated (nil if never).
	TriggeredAt *time.Time

	// LastAcknowledgedAt is when the alarm was last acknowledged (nil if never).
	LastAcknowledgedAt *time.Time

	// OccurrenceCount is the number of activations so far.
	OccurrenceCount int
}

// IsActive reports whether the snapshot counts toward the active aggregates.
func (s AlarmSnapshot) IsActive() bool {
	return s.State.CountsAsActive()
}

// ClearLimit returns the value the process must drop below to clear the alarm.
func (s AlarmSnapshot) ClearLimit() float64 {
	return s.Setpoint - s.Deadband
}

func timeRef(t time.Time) *time.Time {
	t = t.UTC()
	return &t
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
