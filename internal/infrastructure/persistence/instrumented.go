// Package persistence holds the alarm journal backends and the decorator
// that records repository metrics for whichever backend is selected.
package persistence

import (
	"context"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/repository"
)

const journalTable = "alarm_events"

// OperationRecorder receives one measurement per repository call.
type OperationRecorder interface {
	RecordRepositoryOperation(ctx context.Context, operation, table string, duration time.Duration, success bool)
}

// InstrumentedEventRepository wraps an AlarmEventRepository with metrics.
type InstrumentedEventRepository struct {
	next     repository.AlarmEventRepository
	recorder OperationRecorder
}

// NewInstrumentedEventRepository wraps next. A nil recorder returns next unchanged.
func NewInstrumentedEventRepository(next repository.AlarmEventRepository, recorder OperationRecorder) repository.AlarmEventRepository {
	if recorder == nil {
		return next
	}
	return &InstrumentedEventRepository{next: next, recorder: recorder}
}

func (r *InstrumentedEventRepository) observe(ctx context.Context, op string, start time.Time, err error) {
	r.recorder.RecordRepositoryOperation(ctx, op, journalTable, time.Since(start), err == nil)
}

// Save implements repository.AlarmEventRepository.
func (r *InstrumentedEventRepository) Save(ctx context.Context, event *entity.AlarmEvent) error {
	start := time.Now()
	err := r.next.Save(ctx, event)
	r.observe(ctx, "save", start, err)
	return err
}

// FindByID implements repository.AlarmEventRepository.
func (r *InstrumentedEventRepository) FindByID(ctx context.Context, id string) (*entity.AlarmEvent, error) {
	start := time.Now()
	event, err := r.next.FindByID(ctx, id)
	r.observe(ctx, "find_by_id", start, err)
	return event, err
}

// Find implements repository.AlarmEventRepository.
func (r *InstrumentedEventRepository) Find(ctx context.Context, filter repository.EventFilter) ([]*entity.AlarmEvent, error) {
	start := time.Now()
	events, err := r.next.Find(ctx, filter)
	r.observe(ctx, "find", start, err)
	return events, err
}

// CountByType implements repository.AlarmEventRepository.
func (r *InstrumentedEventRepository) CountByType(ctx context.Context, since time.Time) (map[entity.EventType]int, error) {
	start := time.Now()
	counts, err := r.next.CountByType(ctx, since)
	r.observe(ctx, "count_by_type", start, err)
	return counts, err
}
