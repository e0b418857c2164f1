package repository

import (
	"context"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
)

// DefaultEventLimit caps Find results when the filter sets no limit.
const DefaultEventLimit = 100

// EventFilter narrows an alarm journal query. Zero fields match everything.
type EventFilter struct {
	// Tag restricts results to one alarm.
	Tag entity.Tag

	// Type restricts results to one event type.
	Type entity.EventType

	// Since excludes events that occurred before this instant.
	Since time.Time

	// Limit caps the number of results. Zero or negative means DefaultEventLimit.
	Limit int
}

// EffectiveLimit returns the limit to apply.
func (f EventFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultEventLimit
	}
	return f.Limit
}

// Matches reports whether e passes the filter (ignoring Limit).
func (f EventFilter) Matches(e *entity.AlarmEvent) bool {
	if f.Tag != "" && e.Tag != f.Tag {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if !f.Since.IsZero() && e.OccurredAt.Before(f.Since) {
		return false
	}
	return true
}

// AlarmEventRepository is the append-only alarm journal.
// It records history for audit and reporting; the registry never reads it
// back to rebuild alarm state.
type AlarmEventRepository interface {
	// Save appends an event.
	// Returns ErrAlreadyExists if an event with the same ID was already saved.
	Save(ctx context.Context, event *entity.AlarmEvent) error

	// FindByID retrieves an event by its ID.
	// Returns nil, nil if not found.
	FindByID(ctx context.Context, id string) (*entity.AlarmEvent, error)

	// Find returns events matching the filter, newest first.
	Find(ctx context.Context, filter EventFilter) ([]*entity.AlarmEvent, error)

	// CountByType counts events per type that occurred at or after since.
	CountByType(ctx context.Context, since time.Time) (map[entity.EventType]int, error)
}
