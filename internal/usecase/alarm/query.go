package alarm

import (
	"context"
	"fmt"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/repository"
)

// QueryAlarmsUseCase serves read-only views of the registry and the journal.
type QueryAlarmsUseCase struct {
	registry *Registry
	journal  repository.AlarmEventRepository
}

// NewQueryAlarmsUseCase creates a new QueryAlarmsUseCase. journal may be nil.
func NewQueryAlarmsUseCase(registry *Registry, journal repository.AlarmEventRepository) *QueryAlarmsUseCase {
	return &QueryAlarmsUseCase{
		registry: registry,
		journal:  journal,
	}
}

// Summary returns the aggregates together with the active alarms.
func (uc *QueryAlarmsUseCase) Summary(ctx context.Context) (entity.AlarmSummary, []entity.AlarmSnapshot) {
	return uc.registry.Summary(), uc.registry.ActiveAlarms()
}

// Active returns the active alarms in registration order.
func (uc *QueryAlarmsUseCase) Active(ctx context.Context) []entity.AlarmSnapshot {
	return uc.registry.ActiveAlarms()
}

// All returns every configured alarm in registration order.
func (uc *QueryAlarmsUseCase) All(ctx context.Context) []entity.AlarmSnapshot {
	return uc.registry.Alarms()
}

// Alarm returns one alarm by tag.
func (uc *QueryAlarmsUseCase) Alarm(ctx context.Context, tag string) (entity.AlarmSnapshot, error) {
	return uc.registry.Alarm(entity.Tag(tag))
}

// Events queries the journal, newest first.
func (uc *QueryAlarmsUseCase) Events(ctx context.Context, filter repository.EventFilter) ([]*entity.AlarmEvent, error) {
	if uc.journal == nil {
		return []*entity.AlarmEvent{}, nil
	}
	events, err := uc.journal.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("querying alarm events: %w", err)
	}
	return events, nil
}

// EventCounts counts journal entries per type since the given time.
func (uc *QueryAlarmsUseCase) EventCounts(ctx context.Context, since time.Time) (map[entity.EventType]int, error) {
	if uc.journal == nil {
		return map[entity.EventType]int{}, nil
	}
	counts, err := uc.journal.CountByType(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("counting alarm events: %w", err)
	}
	return counts, nil
}
