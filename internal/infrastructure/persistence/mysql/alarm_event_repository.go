package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/repository"
)

const eventColumns = `
	id, sequence, event_type, tag, description, priority,
	previous_state, current_state, process_value, occurrence_count,
	operator, total_active, capacity, occurred_at`

// AlarmEventRepository provides MySQL implementation of repository.AlarmEventRepository.
// Writes go to the primary; reads use the replica when one is configured.
type AlarmEventRepository struct {
	db *DB
}

// NewAlarmEventRepository creates a new MySQL-backed alarm journal.
func NewAlarmEventRepository(db *DB) *AlarmEventRepository {
	return &AlarmEventRepository{db: db}
}

// Save appends an event.
func (r *AlarmEventRepository) Save(ctx context.Context, event *entity.AlarmEvent) error {
	query := `
		INSERT INTO alarm_events (` + eventColumns + `
		) VALUES (
			?, ?, ?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?
		)
	`

	_, err := r.db.Primary().ExecContext(ctx, query,
		event.ID,
		event.Sequence,
		string(event.Type),
		nullString(event.Tag.String()),
		nullString(event.Description),
		priorityValue(event.Priority),
		event.PreviousState.String(),
		event.CurrentState.String(),
		nullFloat(event.Value),
		event.OccurrenceCount,
		nullString(event.Operator),
		event.TotalActive,
		event.Capacity,
		event.OccurredAt.UTC(),
	)

	if err != nil {
		if isDuplicateError(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("inserting alarm event: %w", err)
	}

	return nil
}

// FindByID retrieves an event by its ID.
// Returns nil, nil if not found.
func (r *AlarmEventRepository) FindByID(ctx context.Context, id string) (*entity.AlarmEvent, error) {
	row := r.db.Replica().QueryRowContext(ctx, `SELECT `+eventColumns+` FROM alarm_events WHERE id = ?`, id)

	event, err := scanAlarmEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning alarm event: %w", err)
	}
	return event, nil
}

// Find returns events matching the filter, newest first.
func (r *AlarmEventRepository) Find(ctx context.Context, filter repository.EventFilter) ([]*entity.AlarmEvent, error) {
	var (
		where []string
		args  []any
	)
	if filter.Tag != "" {
		where = append(where, "tag = ?")
		args = append(args, filter.Tag.String())
	}
	if filter.Type != "" {
		where = append(where, "event_type = ?")
		args = append(args, string(filter.Type))
	}
	if !filter.Since.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	query := `SELECT ` + eventColumns + ` FROM alarm_events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY occurred_at DESC, row_id DESC LIMIT ?`
	args = append(args, filter.EffectiveLimit())

	rows, err := r.db.Replica().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying alarm events: %w", err)
	}
	defer rows.Close()

	events := make([]*entity.AlarmEvent, 0)
	for rows.Next() {
		event, err := scanAlarmEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning alarm event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alarm events: %w", err)
	}

	return events, nil
}

// CountByType counts events per type at or after since.
func (r *AlarmEventRepository) CountByType(ctx context.Context, since time.Time) (map[entity.EventType]int, error) {
	rows, err := r.db.Replica().QueryContext(ctx, `
		SELECT event_type, COUNT(*)
		FROM alarm_events
		WHERE occurred_at >= ?
		GROUP BY event_type
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("counting alarm events: %w", err)
	}
	defer rows.Close()

	counts := make(map[entity.EventType]int)
	for rows.Next() {
		var eventType string
		var n int
		if err := rows.Scan(&eventType, &n); err != nil {
			return nil, fmt.Errorf("scanning event count: %w", err)
		}
		counts[entity.EventType(eventType)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event counts: %w", err)
	}

	return counts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlarmEvent(row scanner) (*entity.AlarmEvent, error) {
	var event entity.AlarmEvent
	var eventType, previous, current string
	var tag, description, priority, operator sql.NullString
	var value sql.NullFloat64

	err := row.Scan(
		&event.ID, &event.Sequence, &eventType, &tag, &description, &priority,
		&previous, &current, &value, &event.OccurrenceCount,
		&operator, &event.TotalActive, &event.Capacity, &event.OccurredAt,
	)
	if err != nil {
		return nil, err
	}

	event.Type = entity.EventType(eventType)
	event.Tag = entity.Tag(stringValue(tag))
	event.Description = stringValue(description)
	event.Priority = priorityFromNull(priority)
	event.PreviousState, _ = entity.ParseState(previous)
	event.CurrentState, _ = entity.ParseState(current)
	event.Value = floatPtr(value)
	event.Operator = stringValue(operator)
	event.OccurredAt = event.OccurredAt.UTC()

	return &event, nil
}
