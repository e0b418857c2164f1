package alarm

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/repository"
)

// DefaultEventBuffer is the dispatcher queue size used when none is configured.
const DefaultEventBuffer = 1024

const drainTimeout = 10 * time.Second

// Dispatcher moves registry events off the registry lock. It logs each event,
// appends it to the journal and fans it out to the notifiers, one event at a
// time in publication order.
type Dispatcher struct {
	events    chan *entity.AlarmEvent
	journal   repository.AlarmEventRepository
	notifiers []Notifier
	metrics   MetricsRecorder
	logger    logger.Logger

	// messageIDs maps notifier name + tag to the notification of the
	// alarm's current occurrence. Only touched by the Run goroutine.
	messageIDs map[string]string

	dropped   atomic.Uint64
	processed atomic.Uint64
	running   sync.Mutex
}

// NewDispatcher creates a Dispatcher with a queue of bufferSize events.
// journal may be nil, in which case events are not persisted.
func NewDispatcher(
	bufferSize int,
	journal repository.AlarmEventRepository,
	notifiers []Notifier,
	metrics MetricsRecorder,
	logger logger.Logger,
) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBuffer
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Dispatcher{
		events:     make(chan *entity.AlarmEvent, bufferSize),
		journal:    journal,
		notifiers:  notifiers,
		metrics:    metrics,
		logger:     logger,
		messageIDs: make(map[string]string),
	}
}

// Publish queues an event without blocking. When the queue is full an
// activation event (alarm triggered, capacity exceeded) evicts the oldest
// queued event; any other event is itself dropped. Either way the loss is
// counted, so the stream is lossy under sustained overload.
func (d *Dispatcher) Publish(event *entity.AlarmEvent) {
	queued := event.Clone()
	for {
		select {
		case d.events <- queued:
			return
		default:
		}

		if !isActivation(event.Type) {
			d.drop(event)
			return
		}

		select {
		case evicted := <-d.events:
			d.drop(evicted)
		default:
		}
	}
}

func (d *Dispatcher) drop(event *entity.AlarmEvent) {
	d.dropped.Add(1)
	d.logger.Warn("alarm event dropped, dispatch queue full",
		"event_type", event.Type,
		"tag", event.Tag,
		"sequence", event.Sequence,
	)
}

func isActivation(t entity.EventType) bool {
	return t == entity.EventAlarmTriggered || t == entity.EventCapacityExceeded
}

// Dropped returns how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Processed returns how many events have been handled.
func (d *Dispatcher) Processed() uint64 {
	return d.processed.Load()
}

// Pending returns the number of queued events.
func (d *Dispatcher) Pending() int {
	return len(d.events)
}

// Run handles events until ctx is cancelled, then drains what is queued.
func (d *Dispatcher) Run(ctx context.Context) {
	d.running.Lock()
	defer d.running.Unlock()

	for {
		select {
		case event := <-d.events:
			d.handle(ctx, event)
		case <-ctx.Done():
			d.drain(ctx)
			return
		}
	}
}

func (d *Dispatcher) drain(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), drainTimeout)
	defer cancel()

	remaining := len(d.events)
	if remaining > 0 {
		d.logger.Info("draining alarm events", "pending", remaining)
	}
	for {
		select {
		case event := <-d.events:
			d.handle(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, event *entity.AlarmEvent) {
	defer d.processed.Add(1)

	d.logEvent(event)
	d.metrics.RecordAlarmEvent(ctx, string(event.Type), event.Priority.String())

	if d.journal != nil {
		if err := d.journal.Save(ctx, event); err != nil {
			d.logger.Error("failed to journal alarm event",
				"event_id", event.ID,
				"event_type", event.Type,
				"tag", event.Tag,
				"error", err,
			)
		}
	}

	d.notify(ctx, event)
}

func (d *Dispatcher) logEvent(event *entity.AlarmEvent) {
	switch event.Type {
	case entity.EventAlarmTriggered:
		kv := []any{
			"tag", event.Tag,
			"description", event.Description,
			"priority", event.Priority,
			"occurrence", event.OccurrenceCount,
		}
		if event.Value != nil {
			kv = append(kv, "value", *event.Value)
		}
		d.logger.Info("alarm triggered", kv...)
	case entity.EventCapacityExceeded:
		d.logger.Warn("alarm capacity exceeded",
			"total_active", event.TotalActive,
			"capacity", event.Capacity,
		)
	default:
		d.logger.Info("alarm state changed",
			"event_type", event.Type,
			"tag", event.Tag,
			"from", event.PreviousState,
			"to", event.CurrentState,
			"operator", event.Operator,
		)
	}
}

// notify sends new notifications for activations and registry events, and
// updates the existing notification for every later event of the same occurrence.
func (d *Dispatcher) notify(ctx context.Context, event *entity.AlarmEvent) {
	for _, n := range d.notifiers {
		switch event.Type {
		case entity.EventAlarmTriggered, entity.EventCapacityExceeded:
			messageID, err := n.Notify(ctx, event)
			d.metrics.RecordNotificationSent(ctx, n.Name(), err == nil)
			if err != nil {
				d.logger.Error("notification failed",
					"notifier", n.Name(),
					"event_type", event.Type,
					"tag", event.Tag,
					"error", err,
				)
				continue
			}
			if !event.IsRegistryEvent() {
				d.messageIDs[messageKey(n.Name(), event.Tag)] = messageID
			}
			d.logger.Debug("notification sent",
				"notifier", n.Name(),
				"tag", event.Tag,
				"message_id", messageID,
			)

		default:
			key := messageKey(n.Name(), event.Tag)
			messageID, ok := d.messageIDs[key]
			if !ok {
				continue
			}
			if err := n.UpdateMessage(ctx, messageID, event); err != nil {
				d.logger.Error("failed to update notification",
					"notifier", n.Name(),
					"event_type", event.Type,
					"tag", event.Tag,
					"message_id", messageID,
					"error", err,
				)
			}
			if !event.CurrentState.CountsAsActive() {
				delete(d.messageIDs, key)
			}
		}
	}
}

func messageKey(notifier string, tag entity.Tag) string {
	return notifier + "|" + tag.String()
}
