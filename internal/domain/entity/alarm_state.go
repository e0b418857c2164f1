package entity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidState is returned when a state name is not recognised.
var ErrInvalidState = errors.New("invalid alarm state")

// State is a position in the ISA-18.2 alarm lifecycle.
type State int

const (
	// StateNormal means the process condition is clear and nothing is pending.
	StateNormal State = iota
	// StateUnacknowledged means the alarm is active and the operator has not acknowledged it.
	StateUnacknowledged
	// StateAcknowledged means the alarm is active and has been acknowledged.
	StateAcknowledged
	// StateReturnedUnacknowledged means the condition cleared before acknowledgement.
	StateReturnedUnacknowledged
	// StateShelved means the operator has temporarily shelved the alarm.
	StateShelved
	// StateSuppressed means the alarm is suppressed by design or by the operator.
	StateSuppressed
	// StateOutOfService means the alarm is disabled.
	StateOutOfService
)

var stateNames = map[State]string{
	StateNormal:                 "NORMAL",
	StateUnacknowledged:         "UNACKNOWLEDGED",
	StateAcknowledged:           "ACKNOWLEDGED",
	StateReturnedUnacknowledged: "RETURNED_UNACKNOWLEDGED",
	StateShelved:                "SHELVED",
	StateSuppressed:             "SUPPRESSED",
	StateOutOfService:           "OUT_OF_SERVICE",
}

// String returns the upper-case state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether s is one of the seven lifecycle states.
func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

// CountsAsActive reports whether an alarm in this state is included in the
// active-alarm aggregates. Every state except NORMAL and OUT_OF_SERVICE counts.
func (s State) CountsAsActive() bool {
	return s.Valid() && s != StateNormal && s != StateOutOfService
}

// ParseState parses a state name, ignoring case and surrounding whitespace.
func ParseState(s string) (State, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for state, n := range stateNames {
		if n == name {
			return state, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidState, s)
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidState, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
