package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/repository"
)

const eventColumns = `id, sequence, event_type, tag, description, priority,
	previous_state, current_state, process_value, occurrence_count,
	operator, total_active, capacity, occurred_at`

// AlarmEventRepository provides SQLite implementation of repository.AlarmEventRepository.
type AlarmEventRepository struct {
	db *sql.DB
}

// NewAlarmEventRepository creates a new SQLite-backed alarm journal.
func NewAlarmEventRepository(db *sql.DB) *AlarmEventRepository {
	return &AlarmEventRepository{db: db}
}

// Save appends an event.
// Returns repository.ErrAlreadyExists if the ID was saved before.
func (r *AlarmEventRepository) Save(ctx context.Context, event *entity.AlarmEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alarm_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID, int64(event.Sequence), string(event.Type),
		nullString(event.Tag.String()), nullString(event.Description),
		priorityToString(event.Priority),
		event.PreviousState.String(), event.CurrentState.String(),
		nullFloat(event.Value), event.OccurrenceCount,
		nullString(event.Operator), event.TotalActive, event.Capacity,
		timeToString(event.OccurredAt),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("alarm event %s: %w", event.ID, repository.ErrAlreadyExists)
		}
		return fmt.Errorf("insert alarm event: %w", err)
	}

	return nil
}

// FindByID retrieves an event by its unique identifier.
// Returns nil, nil if not found.
func (r *AlarmEventRepository) FindByID(ctx context.Context, id string) (*entity.AlarmEvent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM alarm_events WHERE id = ?`, id)

	event, err := scanAlarmEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan alarm event: %w", err)
	}
	return event, nil
}

// Find returns events matching the filter, newest first.
func (r *AlarmEventRepository) Find(ctx context.Context, filter repository.EventFilter) ([]*entity.AlarmEvent, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Tag != "" {
		conds = append(conds, "tag = ?")
		args = append(args, filter.Tag.String())
	}
	if filter.Type != "" {
		conds = append(conds, "event_type = ?")
		args = append(args, string(filter.Type))
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, timeToString(filter.Since))
	}

	query := `SELECT ` + eventColumns + ` FROM alarm_events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY occurred_at DESC, row_id DESC LIMIT ?"
	args = append(args, filter.EffectiveLimit())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alarm events: %w", err)
	}
	defer rows.Close()

	events := make([]*entity.AlarmEvent, 0)
	for rows.Next() {
		event, err := scanAlarmEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alarm event row: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return events, nil
}

// CountByType counts events per type at or after since.
func (r *AlarmEventRepository) CountByType(ctx context.Context, since time.Time) (map[entity.EventType]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_type, COUNT(*) FROM alarm_events
		WHERE occurred_at >= ?
		GROUP BY event_type
	`, timeToString(since))
	if err != nil {
		return nil, fmt.Errorf("count alarm events: %w", err)
	}
	defer rows.Close()

	counts := make(map[entity.EventType]int)
	for rows.Next() {
		var (
			eventType string
			n         int
		)
		if err := rows.Scan(&eventType, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[entity.EventType(eventType)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanAlarmEvent scans one row in eventColumns order.
func scanAlarmEvent(row rowScanner) (*entity.AlarmEvent, error) {
	var (
		event       entity.AlarmEvent
		sequence    int64
		eventType   string
		tag         sql.NullString
		description sql.NullString
		priority    sql.NullString
		previous    string
		current     string
		value       sql.NullFloat64
		operator    sql.NullString
		occurredAt  string
	)

	err := row.Scan(
		&event.ID, &sequence, &eventType, &tag, &description, &priority,
		&previous, &current, &value, &event.OccurrenceCount,
		&operator, &event.TotalActive, &event.Capacity, &occurredAt,
	)
	if err != nil {
		return nil, err
	}

	event.Sequence = uint64(sequence)
	event.Type = entity.EventType(eventType)
	event.Tag = entity.Tag(stringFromNull(tag))
	event.Description = stringFromNull(description)
	event.Priority = priorityFromNull(priority)
	event.PreviousState, _ = entity.ParseState(previous)
	event.CurrentState, _ = entity.ParseState(current)
	event.Value = floatFromNull(value)
	event.Operator = stringFromNull(operator)
	event.OccurredAt, _ = parseTime(occurredAt)

	return &event, nil
}
