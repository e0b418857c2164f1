package memory

import (
	"context"
	"sync"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/repository"
)

// AlarmEventRepository provides an in-memory implementation of repository.AlarmEventRepository.
// Thread-safe for concurrent access.
type AlarmEventRepository struct {
	mu     sync.RWMutex
	events []*entity.AlarmEvent          // append order
	byID   map[string]*entity.AlarmEvent // id -> event
}

// NewAlarmEventRepository creates a new in-memory alarm journal.
func NewAlarmEventRepository() *AlarmEventRepository {
	return &AlarmEventRepository{
		byID: make(map[string]*entity.AlarmEvent),
	}
}

// Save appends an event.
func (r *AlarmEventRepository) Save(ctx context.Context, event *entity.AlarmEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[event.ID]; exists {
		return repository.ErrAlreadyExists
	}

	// Store a copy to prevent external mutations
	eventCopy := event.Clone()
	r.events = append(r.events, eventCopy)
	r.byID[event.ID] = eventCopy

	return nil
}

// FindByID retrieves an event by its ID.
func (r *AlarmEventRepository) FindByID(ctx context.Context, id string) (*entity.AlarmEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return event.Clone(), nil
}

// Find returns matching events, newest first.
func (r *AlarmEventRepository) Find(ctx context.Context, filter repository.EventFilter) ([]*entity.AlarmEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := filter.EffectiveLimit()
	events := make([]*entity.AlarmEvent, 0)
	for i := len(r.events) - 1; i >= 0 && len(events) < limit; i-- {
		if filter.Matches(r.events[i]) {
			events = append(events, r.events[i].Clone())
		}
	}

	return events, nil
}

// CountByType counts events per type at or after since.
func (r *AlarmEventRepository) CountByType(ctx context.Context, since time.Time) (map[entity.EventType]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[entity.EventType]int)
	for _, event := range r.events {
		if event.OccurredAt.Before(since) {
			continue
		}
		counts[event.Type]++
	}

	return counts, nil
}

// Len returns the number of stored events.
func (r *AlarmEventRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}
