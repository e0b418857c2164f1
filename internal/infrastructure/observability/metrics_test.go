package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
)

func setupMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumValue(t *testing.T, m metricdata.Metrics, kv ...attribute.KeyValue) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	want := attribute.NewSet(kv...)
	var total int64
	for _, dp := range sum.DataPoints {
		if matchesAll(dp.Attributes, want) {
			total += dp.Value
		}
	}
	return total
}

func matchesAll(have, want attribute.Set) bool {
	for _, kv := range want.ToSlice() {
		v, ok := have.Value(kv.Key)
		if !ok || v != kv.Value {
			return false
		}
	}
	return true
}

func TestMetrics_Counters(t *testing.T) {
	m, reader := setupMetrics(t)
	ctx := context.Background()

	m.RecordProcessValue(ctx, "TT101", "triggered")
	m.RecordProcessValue(ctx, "TT101", "unchanged")
	m.RecordProcessValue(ctx, "TT101", "unchanged")
	m.RecordAlarmEvent(ctx, "AlarmTriggered", "HIGH")
	m.RecordAlarmEvent(ctx, "CapacityExceeded", "")
	m.RecordNotificationSent(ctx, "slack", true)
	m.RecordNotificationSent(ctx, "slack", false)
	m.RecordNotificationRetry(ctx, "slack")

	got := collect(t, reader)

	assert.Equal(t, int64(1), sumValue(t, got["alarm.process_values"], attribute.String("result", "triggered")))
	assert.Equal(t, int64(2), sumValue(t, got["alarm.process_values"], attribute.String("result", "unchanged")))
	assert.Equal(t, int64(1), sumValue(t, got["alarm.events"],
		attribute.String("event.type", "AlarmTriggered"), attribute.String("alarm.priority", "HIGH")))
	assert.Equal(t, int64(2), sumValue(t, got["alarm.events"]))
	assert.Equal(t, int64(2), sumValue(t, got["notifications.sent.total"], attribute.String("notifier", "slack")))
	assert.Equal(t, int64(1), sumValue(t, got["notifications.errors.total"]))
	assert.Equal(t, int64(1), sumValue(t, got["notifications.retries.total"]))
}

func TestMetrics_ObserveRegistry(t *testing.T) {
	m, reader := setupMetrics(t)

	summary := entity.NewAlarmSummary(10)
	summary.CountsByPriority[entity.PriorityHigh] = 2
	summary.CountsByPriority[entity.PriorityCritical] = 1
	summary.TotalActive = 3

	require.NoError(t, m.ObserveRegistry(RegistryStats{
		Summary: func() entity.AlarmSummary { return summary },
		Dropped: func() uint64 { return 4 },
	}))

	got := collect(t, reader)

	active, ok := got["alarm.active"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	byPriority := map[string]int64{}
	for _, dp := range active.DataPoints {
		v, _ := dp.Attributes.Value("priority")
		byPriority[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"LOW": 0, "MEDIUM": 0, "HIGH": 2, "CRITICAL": 1}, byPriority)

	capacity, ok := got["alarm.capacity"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, capacity.DataPoints, 1)
	assert.Equal(t, int64(10), capacity.DataPoints[0].Value)

	assert.Equal(t, int64(4), sumValue(t, got["alarm.events.dropped"]))
}
