package presenter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
)

func demoAlarms(t *testing.T) []entity.AlarmSnapshot {
	t.Helper()

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tt101, err := entity.NewAlarmRecord("TT101", "Reactor Temperature High", entity.PriorityHigh, 150, 2)
	require.NoError(t, err)
	ft303, err := entity.NewAlarmRecord("FT303", "Coolant Flow Low", entity.PriorityCritical, 20, 1)
	require.NoError(t, err)

	tt101.Evaluate(155, at)
	tt101.Acknowledge(at.Add(time.Minute))
	return []entity.AlarmSnapshot{tt101.Snapshot(), ft303.Snapshot()}
}

func TestTextFormatter_FormatSummary(t *testing.T) {
	alarms := demoAlarms(t)
	summary := entity.NewAlarmSummary(100)
	summary.TotalActive = 1
	summary.CountsByPriority[entity.PriorityHigh] = 1

	got := NewTextFormatter().FormatSummary(summary, alarms)

	want := "=== ALARM SUMMARY ===\n" +
		"Total Active Alarms: 1 (Max: 100)\n" +
		"By Priority:\n" +
		"  CRITICAL: 0\n" +
		"  HIGH:     1\n" +
		"  MEDIUM:   0\n" +
		"  LOW:      0\n" +
		"\n" +
		"Active Alarms:\n" +
		"  TT101 (HIGH) - ACKNOWLEDGED\n" +
		"=====================\n"
	assert.Equal(t, want, got)
}

func TestTextFormatter_FormatAlarms(t *testing.T) {
	got := NewTextFormatter().FormatAlarms(demoAlarms(t))

	assert.Contains(t, got, "=== ALL CONFIGURED ALARMS ===\n")
	assert.Contains(t, got, "Alarm: TT101 (Reactor Temperature High)\n"+
		"  Priority: HIGH\n"+
		"  State: ACKNOWLEDGED\n"+
		"  Setpoint: 150 (Deadband: 2)\n"+
		"  Triggered: 2026-03-01T08:00:00Z\n"+
		"  Last Acknowledged: 2026-03-01T08:01:00Z\n"+
		"  Occurrence Count: 1\n"+
		"  Enabled: Yes\n"+
		"  Suppressed: No\n"+
		"  Shelved: No\n")
	// FT303 never triggered, so no timestamps
	assert.Contains(t, got, "  State: NORMAL\n  Setpoint: 20 (Deadband: 1)\n  Occurrence Count: 0\n")
}

func TestTerminal_Summary(t *testing.T) {
	alarms := demoAlarms(t)
	summary := entity.NewAlarmSummary(100)
	summary.TotalActive = 1
	summary.CountsByPriority[entity.PriorityHigh] = 1

	out := NewTerminal(80).Summary(summary, alarms[:1])
	assert.Contains(t, out, "ALARM SUMMARY")
	assert.Contains(t, out, "1 / 100")
	assert.Contains(t, out, "TT101")
	assert.Contains(t, out, "ACKNOWLEDGED")

	empty := NewTerminal(0).Summary(entity.NewAlarmSummary(100), nil)
	assert.Contains(t, empty, "No active alarms")
}

func TestTerminal_AlarmTable(t *testing.T) {
	out := NewTerminal(0).AlarmTable(demoAlarms(t), 0)
	assert.Contains(t, out, "TAG")
	assert.Contains(t, out, "TT101")
	assert.Contains(t, out, "FT303")
	assert.Contains(t, out, "CRITICAL")
}

func TestTerminal_Event(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	record, err := entity.NewAlarmRecord("TT101", "Reactor Temperature High", entity.PriorityHigh, 150, 2)
	require.NoError(t, err)
	out := record.Evaluate(155, at)
	event := entity.NewAlarmEvent(entity.EventAlarmTriggered, record.Snapshot(), out, at).WithValue(155)

	term := NewTerminal(0)
	line := term.Event(event)
	assert.Contains(t, line, "[TRIGGERED]")
	assert.Contains(t, line, "TT101")
	assert.Contains(t, line, "NORMAL")
	assert.Contains(t, line, "UNACKNOWLEDGED")
	assert.Contains(t, line, "value 155")

	capacity := term.Event(entity.NewCapacityExceededEvent(5, 4, at))
	assert.Contains(t, capacity, "[CAPACITY EXCEEDED]")
	assert.Contains(t, capacity, "5 active (max 4)")
}
