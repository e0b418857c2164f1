package entity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPriority is returned when a priority name or value is not recognised.
var ErrInvalidPriority = errors.New("invalid alarm priority")

// Priority is the ISA-18.2 priority assigned to an alarm at configuration time.
// The zero value is not a valid priority.
type Priority int

const (
	// PriorityLow is for alarms where the operator has ample time to respond.
	PriorityLow Priority = iota + 1
	// PriorityMedium is for alarms that need a response within minutes.
	PriorityMedium
	// PriorityHigh is for alarms that need prompt operator action.
	PriorityHigh
	// PriorityCritical is for alarms that need immediate operator action.
	PriorityCritical
)

// AllPriorities returns every priority, most urgent first.
func AllPriorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
}

// String returns the upper-case priority name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether p is one of the four defined priorities.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

// ParsePriority parses a priority name, ignoring case and surrounding whitespace.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return PriorityLow, nil
	case "MEDIUM":
		return PriorityMedium, nil
	case "HIGH":
		return PriorityHigh, nil
	case "CRITICAL":
		return PriorityCritical, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
}

// MarshalText encodes the priority by name. The zero value encodes as an empty string.
func (p Priority) MarshalText() ([]byte, error) {
	if p == 0 {
		return []byte{}, nil
	}
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPriority, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a priority name. An empty string decodes to the zero value.
func (p *Priority) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = 0
		return nil
	}
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
