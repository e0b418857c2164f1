package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
)

func sampleData(t *testing.T) Data {
	t.Helper()

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tt101, err := entity.NewAlarmRecord("TT101", "Reactor Temperature High", entity.PriorityHigh, 150, 2)
	require.NoError(t, err)
	pt202, err := entity.NewAlarmRecord("PT202", "Feed Pressure Low", entity.PriorityMedium, 50, 5)
	require.NoError(t, err)
	tt101.Evaluate(155, at)

	summary := entity.NewAlarmSummary(100)
	summary.TotalActive = 1
	summary.CountsByPriority[entity.PriorityHigh] = 1

	return Data{
		Summary:     summary,
		Alarms:      []entity.AlarmSnapshot{tt101.Snapshot(), pt202.Snapshot()},
		EventCounts: map[entity.EventType]int{entity.EventAlarmTriggered: 1},
		GeneratedAt: at,
	}
}

func TestBuildAlarmsXLSX(t *testing.T) {
	out, err := BuildAlarmsXLSX(sampleData(t))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{alarmsSheet, summarySheet, eventsSheet}, f.GetSheetList())

	rows, err := f.GetRows(alarmsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, alarmColumns, rows[0])
	assert.Equal(t, "TT101", rows[1][0])
	assert.Equal(t, "HIGH", rows[1][2])
	assert.Equal(t, "148", rows[1][5])
	assert.Equal(t, "UNACKNOWLEDGED", rows[1][6])
	assert.Equal(t, "1", rows[1][10])
	assert.Equal(t, "2026-03-01 08:00:00", rows[1][11])
	assert.Equal(t, "NORMAL", rows[2][6])

	total, err := f.GetCellValue(summarySheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "1", total)

	triggered, err := f.GetCellValue(eventsSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "1", triggered)
	returned, err := f.GetCellValue(eventsSheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "0", returned)
}

func TestBuildSummaryPDF(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) Data
	}{
		{"with active alarms", sampleData},
		{"nothing active", func(t *testing.T) Data {
			d := sampleData(t)
			d.Alarms = d.Alarms[1:]
			d.Summary = entity.NewAlarmSummary(100)
			return d
		}},
		{"capacity exceeded", func(t *testing.T) Data {
			d := sampleData(t)
			d.Summary.Capacity = 0
			return d
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := BuildSummaryPDF(tt.data(t))
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
			assert.Greater(t, len(out), 500)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
