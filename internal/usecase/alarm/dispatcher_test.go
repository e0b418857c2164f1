package alarm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/repository"
)

type fakeJournal struct {
	mu     sync.Mutex
	events []*entity.AlarmEvent
	err    error
}

func (j *fakeJournal) Save(_ context.Context, e *entity.AlarmEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.events = append(j.events, e)
	return nil
}

func (j *fakeJournal) FindByID(context.Context, string) (*entity.AlarmEvent, error) {
	return nil, nil
}

func (j *fakeJournal) Find(_ context.Context, f repository.EventFilter) ([]*entity.AlarmEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*entity.AlarmEvent
	for i := len(j.events) - 1; i >= 0 && len(out) < f.EffectiveLimit(); i-- {
		if f.Matches(j.events[i]) {
			out = append(out, j.events[i])
		}
	}
	return out, nil
}

func (j *fakeJournal) CountByType(_ context.Context, since time.Time) (map[entity.EventType]int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	counts := map[entity.EventType]int{}
	for _, e := range j.events {
		if !e.OccurredAt.Before(since) {
			counts[e.Type]++
		}
	}
	return counts, nil
}

func (j *fakeJournal) len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.events)
}

type notifierCall struct {
	method    string
	messageID string
	eventType entity.EventType
	state     entity.State
}

type fakeNotifier struct {
	name      string
	mu        sync.Mutex
	calls     []notifierCall
	notifyErr error
	seq       int
}

func (n *fakeNotifier) Notify(_ context.Context, e *entity.AlarmEvent) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{method: "notify", eventType: e.Type, state: e.CurrentState})
	if n.notifyErr != nil {
		return "", n.notifyErr
	}
	n.seq++
	return fmt.Sprintf("%s-msg-%d", n.name, n.seq), nil
}

func (n *fakeNotifier) UpdateMessage(_ context.Context, id string, e *entity.AlarmEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{method: "update", messageID: id, eventType: e.Type, state: e.CurrentState})
	return nil
}

func (n *fakeNotifier) Name() string { return n.name }

func (n *fakeNotifier) snapshot() []notifierCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifierCall(nil), n.calls...)
}

func runDispatcher(t *testing.T, d *Dispatcher) (stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("dispatcher did not stop")
		}
	}
}

func TestDispatcher_JournalsAndNotifies(t *testing.T) {
	journal := &fakeJournal{}
	slack := &fakeNotifier{name: "slack"}
	d := NewDispatcher(16, journal, []Notifier{slack}, nil, logger.Nop())
	r, _ := setupRegistry(t, WithPublisher(d))
	stop := runDispatcher(t, d)

	_, _ = r.UpdateProcessValue("TT101", 155)
	_, _ = r.Acknowledge("TT101")
	_, _ = r.UpdateProcessValue("TT101", 100)
	_, _ = r.Acknowledge("TT101")
	_, _ = r.Shelve("TT101") // after NORMAL: no message to update

	require.Eventually(t, func() bool { return d.Processed() == 5 }, 2*time.Second, 10*time.Millisecond)
	stop()

	assert.Equal(t, 5, journal.len())
	calls := slack.snapshot()
	require.Len(t, calls, 4)
	assert.Equal(t, "notify", calls[0].method)
	for _, c := range calls[1:] {
		assert.Equal(t, "update", c.method)
		assert.Equal(t, "slack-msg-1", c.messageID)
	}
	assert.Equal(t, entity.StateNormal, calls[3].state)
}

func TestDispatcher_NewOccurrenceGetsNewMessage(t *testing.T) {
	pd := &fakeNotifier{name: "pagerduty"}
	d := NewDispatcher(16, nil, []Notifier{pd}, nil, logger.Nop())
	r, _ := setupRegistry(t, WithPublisher(d))
	stop := runDispatcher(t, d)

	_, _ = r.UpdateProcessValue("FT303", 25)
	_, _ = r.Shelve("FT303")
	_, _ = r.Unshelve("FT303")
	_, _ = r.UpdateProcessValue("FT303", 25)

	require.Eventually(t, func() bool { return d.Processed() == 4 }, 2*time.Second, 10*time.Millisecond)
	stop()

	calls := pd.snapshot()
	require.Len(t, calls, 4)
	assert.Equal(t, []string{"notify", "update", "update", "notify"},
		[]string{calls[0].method, calls[1].method, calls[2].method, calls[3].method})
	assert.Equal(t, "pagerduty-msg-1", calls[2].messageID)
}

func TestDispatcher_CapacityEventNotifies(t *testing.T) {
	n := &fakeNotifier{name: "slack"}
	d := NewDispatcher(16, nil, []Notifier{n}, nil, logger.Nop())
	r, _ := setupRegistry(t, WithPublisher(d), WithCapacity(0))
	stop := runDispatcher(t, d)

	_, _ = r.UpdateProcessValue("TT101", 155)

	require.Eventually(t, func() bool { return d.Processed() == 2 }, 2*time.Second, 10*time.Millisecond)
	stop()

	calls := n.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, entity.EventCapacityExceeded, calls[1].eventType)
	assert.Equal(t, "notify", calls[1].method)
}

func TestDispatcher_FailuresDoNotStopProcessing(t *testing.T) {
	journal := &fakeJournal{err: errors.New("disk full")}
	n := &fakeNotifier{name: "slack", notifyErr: errors.New("boom")}
	d := NewDispatcher(16, journal, []Notifier{n}, nil, logger.Nop())
	r, _ := setupRegistry(t, WithPublisher(d))
	stop := runDispatcher(t, d)

	_, _ = r.UpdateProcessValue("TT101", 155)
	_, _ = r.Acknowledge("TT101")

	require.Eventually(t, func() bool { return d.Processed() == 2 }, 2*time.Second, 10*time.Millisecond)
	stop()

	// failed Notify leaves no message to update
	assert.Len(t, n.snapshot(), 1)
}

func TestDispatcher_FullQueue(t *testing.T) {
	tests := []struct {
		name        string
		publish     func(r *Registry)
		wantDropped uint64
		wantJournal []string
	}{
		{
			name: "trigger evicts the oldest queued event",
			publish: func(r *Registry) {
				_, _ = r.UpdateProcessValue("TT101", 155)
				_, _ = r.UpdateProcessValue("PT202", 55)
				_, _ = r.UpdateProcessValue("FT303", 25)
			},
			wantDropped: 1,
			wantJournal: []string{"AlarmTriggered PT202", "AlarmTriggered FT303"},
		},
		{
			name: "trigger is kept over a queued acknowledgement",
			publish: func(r *Registry) {
				_, _ = r.UpdateProcessValue("TT101", 155)
				_, _ = r.Acknowledge("TT101")
				_, _ = r.UpdateProcessValue("FT303", 25)
			},
			wantDropped: 1,
			wantJournal: []string{"AlarmAcknowledged TT101", "AlarmTriggered FT303"},
		},
		{
			name: "non-activation event is dropped",
			publish: func(r *Registry) {
				_, _ = r.UpdateProcessValue("TT101", 155)
				_, _ = r.UpdateProcessValue("FT303", 25)
				_, _ = r.Acknowledge("TT101")
				_, _ = r.Shelve("FT303")
			},
			wantDropped: 2,
			wantJournal: []string{"AlarmTriggered TT101", "AlarmTriggered FT303"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			journal := &fakeJournal{}
			d := NewDispatcher(2, journal, nil, nil, logger.Nop())
			r, _ := setupRegistry(t, WithPublisher(d))

			tt.publish(r)

			assert.Equal(t, 2, d.Pending())
			assert.Equal(t, tt.wantDropped, d.Dropped())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			d.Run(ctx)

			journal.mu.Lock()
			defer journal.mu.Unlock()
			got := make([]string, 0, len(journal.events))
			for _, e := range journal.events {
				got = append(got, string(e.Type)+" "+e.Tag.String())
			}
			assert.Equal(t, tt.wantJournal, got)
		})
	}
}

func TestDispatcher_DrainsOnShutdown(t *testing.T) {
	journal := &fakeJournal{}
	d := NewDispatcher(8, journal, nil, nil, logger.Nop())
	r, _ := setupRegistry(t, WithPublisher(d))

	_, _ = r.UpdateProcessValue("TT101", 155)
	_, _ = r.UpdateProcessValue("PT202", 55)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	assert.Equal(t, 2, journal.len())
	assert.Zero(t, d.Pending())
}
