package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/repository"
)

func newEvent(t *testing.T, eventType entity.EventType, tag string, at time.Time) *entity.AlarmEvent {
	t.Helper()

	record, err := entity.NewAlarmRecord(tag, "Tank Level High", entity.PriorityLow, 80, 3)
	require.NoError(t, err)
	out := record.Evaluate(85, at)
	return entity.NewAlarmEvent(eventType, record.Snapshot(), out, at).WithValue(85)
}

func TestAlarmEventRepository_Save(t *testing.T) {
	repo := NewAlarmEventRepository()
	ctx := context.Background()
	event := newEvent(t, entity.EventAlarmTriggered, "LT404", time.Now())

	require.NoError(t, repo.Save(ctx, event))
	assert.ErrorIs(t, repo.Save(ctx, event), repository.ErrAlreadyExists)
	assert.Equal(t, 1, repo.Len())

	t.Run("stored copy is isolated", func(t *testing.T) {
		*event.Value = 0
		event.Operator = "mallory"

		saved, err := repo.FindByID(ctx, event.ID)
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, 85.0, *saved.Value)
		assert.Empty(t, saved.Operator)

		saved.Operator = "eve"
		again, _ := repo.FindByID(ctx, event.ID)
		assert.Empty(t, again.Operator)
	})

	t.Run("missing", func(t *testing.T) {
		got, err := repo.FindByID(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestAlarmEventRepository_FindAndCount(t *testing.T) {
	repo := NewAlarmEventRepository()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := newEvent(t, entity.EventAlarmTriggered, "LT404", base)
	b := newEvent(t, entity.EventAlarmTriggered, "TT101", base.Add(time.Minute))
	c := newEvent(t, entity.EventAlarmAcknowledged, "LT404", base.Add(2*time.Minute))
	for _, e := range []*entity.AlarmEvent{a, b, c} {
		require.NoError(t, repo.Save(ctx, e))
	}

	got, err := repo.Find(ctx, repository.EventFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{c.ID, b.ID, a.ID}, []string{got[0].ID, got[1].ID, got[2].ID})

	got, err = repo.Find(ctx, repository.EventFilter{Tag: "LT404", Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, c.ID, got[0].ID)

	got, err = repo.Find(ctx, repository.EventFilter{Tag: "PT202"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	counts, err := repo.CountByType(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, map[entity.EventType]int{
		entity.EventAlarmTriggered:    1,
		entity.EventAlarmAcknowledged: 1,
	}, counts)
}
