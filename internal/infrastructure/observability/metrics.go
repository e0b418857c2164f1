package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
)

// Metrics holds all application metrics.
type Metrics struct {
	meter metric.Meter

	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsActive  metric.Int64UpDownCounter

	// Alarm metrics
	ProcessValuesTotal metric.Int64Counter
	AlarmEventsTotal   metric.Int64Counter

	// Notification metrics
	NotificationsSentTotal   metric.Int64Counter
	NotificationRetriesTotal metric.Int64Counter
	NotificationErrorsTotal  metric.Int64Counter

	// Repository metrics
	RepositoryOperationsTotal   metric.Int64Counter
	RepositoryOperationDuration metric.Float64Histogram

	registration metric.Registration
}

// NewMetrics creates and registers all application metrics.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}

	var err error

	// HTTP metrics
	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http.server.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http_request_duration: %w", err)
	}

	m.HTTPRequestsActive, err = meter.Int64UpDownCounter(
		"http.server.requests.active",
		metric.WithDescription("Number of active HTTP requests"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http_requests_active: %w", err)
	}

	// Alarm metrics
	m.ProcessValuesTotal, err = meter.Int64Counter(
		"alarm.process_values",
		metric.WithDescription("Process value samples received, by evaluation result"),
		metric.WithUnit("{samples}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating alarm_process_values: %w", err)
	}

	m.AlarmEventsTotal, err = meter.Int64Counter(
		"alarm.events",
		metric.WithDescription("Alarm events dispatched, by type and priority"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating alarm_events: %w", err)
	}

	// Notification metrics
	m.NotificationsSentTotal, err = meter.Int64Counter(
		"notifications.sent.total",
		metric.WithDescription("Total number of notifications sent"),
		metric.WithUnit("{notifications}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating notifications_sent_total: %w", err)
	}

	m.NotificationRetriesTotal, err = meter.Int64Counter(
		"notifications.retries.total",
		metric.WithDescription("Total number of notification retries"),
		metric.WithUnit("{retries}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating notification_retries_total: %w", err)
	}

	m.NotificationErrorsTotal, err = meter.Int64Counter(
		"notifications.errors.total",
		metric.WithDescription("Total number of notification errors"),
		metric.WithUnit("{errors}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating notification_errors_total: %w", err)
	}

	// Repository metrics
	m.RepositoryOperationsTotal, err = meter.Int64Counter(
		"repository.operations.total",
		metric.WithDescription("Total number of repository operations"),
		metric.WithUnit("{operations}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating repository_operations_total: %w", err)
	}

	m.RepositoryOperationDuration, err = meter.Float64Histogram(
		"repository.operation.duration",
		metric.WithDescription("Repository operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating repository_operation_duration: %w", err)
	}

	return m, nil
}

// RegistryStats is read on every collection to report registry state.
type RegistryStats struct {
	Summary func() entity.AlarmSummary
	Dropped func() uint64
}

// ObserveRegistry registers the asynchronous instruments alarm.active,
// alarm.capacity and alarm.events.dropped. Calling it again replaces
// the previous registration.
func (m *Metrics) ObserveRegistry(stats RegistryStats) error {
	active, err := m.meter.Int64ObservableGauge(
		"alarm.active",
		metric.WithDescription("Active alarms by priority"),
		metric.WithUnit("{alarms}"),
	)
	if err != nil {
		return fmt.Errorf("creating alarm_active: %w", err)
	}

	capacity, err := m.meter.Int64ObservableGauge(
		"alarm.capacity",
		metric.WithDescription("Configured active alarm capacity"),
		metric.WithUnit("{alarms}"),
	)
	if err != nil {
		return fmt.Errorf("creating alarm_capacity: %w", err)
	}

	dropped, err := m.meter.Int64ObservableCounter(
		"alarm.events.dropped",
		metric.WithDescription("Alarm events dropped because the dispatch queue was full"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return fmt.Errorf("creating alarm_events_dropped: %w", err)
	}

	reg, err := m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		if stats.Summary != nil {
			s := stats.Summary()
			for _, p := range entity.AllPriorities() {
				o.ObserveInt64(active, int64(s.Count(p)),
					metric.WithAttributes(attribute.String("priority", p.String())))
			}
			o.ObserveInt64(capacity, int64(s.Capacity))
		}
		if stats.Dropped != nil {
			o.ObserveInt64(dropped, int64(stats.Dropped()))
		}
		return nil
	}, active, capacity, dropped)
	if err != nil {
		return fmt.Errorf("registering registry callback: %w", err)
	}

	if m.registration != nil {
		_ = m.registration.Unregister()
	}
	m.registration = reg
	return nil
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordProcessValue counts one ingested sample. Result is one of
// triggered, returned, unchanged, unknown_tag or invalid.
func (m *Metrics) RecordProcessValue(ctx context.Context, tag, result string) {
	m.ProcessValuesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("alarm.tag", tag),
		attribute.String("result", result),
	))
}

// RecordAlarmEvent counts one dispatched alarm event.
func (m *Metrics) RecordAlarmEvent(ctx context.Context, eventType, priority string) {
	attrs := []attribute.KeyValue{attribute.String("event.type", eventType)}
	if priority != "" {
		attrs = append(attrs, attribute.String("alarm.priority", priority))
	}
	m.AlarmEventsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNotificationSent records notification metrics.
func (m *Metrics) RecordNotificationSent(ctx context.Context, notifier string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("notifier", notifier),
		attribute.Bool("success", success),
	}

	m.NotificationsSentTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	if !success {
		m.NotificationErrorsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordNotificationRetry counts one retried notification attempt.
func (m *Metrics) RecordNotificationRetry(ctx context.Context, notifier string) {
	m.NotificationRetriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("notifier", notifier)))
}

// RecordRepositoryOperation records repository operation metrics.
func (m *Metrics) RecordRepositoryOperation(ctx context.Context, operation, table string, duration time.Duration, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("table", table),
		attribute.Bool("success", success),
	}

	m.RepositoryOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.RepositoryOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
