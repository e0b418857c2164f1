package entity

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestAlarm(t *testing.T) *AlarmRecord {
	t.Helper()

	a, err := NewAlarmRecord("TT101", "Reactor Temperature High", PriorityHigh, 150.0, 2.0)
	require.NoError(t, err)
	return a
}

func TestNewAlarmRecord(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		a := newTestAlarm(t)

		assert.Equal(t, Tag("TT101"), a.Tag())
		assert.Equal(t, "Reactor Temperature High", a.Description())
		assert.Equal(t, PriorityHigh, a.Priority())
		assert.Equal(t, StateNormal, a.State())
		assert.True(t, a.Enabled())
		assert.False(t, a.Suppressed())
		assert.False(t, a.Shelved())
		assert.Zero(t, a.OccurrenceCount())
		assert.Nil(t, a.Snapshot().TriggeredAt)
		assert.Nil(t, a.Snapshot().LastAcknowledgedAt)
	})

	tests := []struct {
		name     string
		tag      string
		priority Priority
		setpoint float64
		deadband float64
		wantErr  error
	}{
		{"empty tag", "", PriorityLow, 1, 0, ErrInvalidTag},
		{"tag with space", "TT 101", PriorityLow, 1, 0, ErrInvalidTag},
		{"zero priority", "TT101", 0, 1, 0, ErrInvalidPriority},
		{"NaN setpoint", "TT101", PriorityLow, math.NaN(), 0, ErrInvalidSetpoint},
		{"infinite setpoint", "TT101", PriorityLow, math.Inf(1), 0, ErrInvalidSetpoint},
		{"negative deadband", "TT101", PriorityLow, 1, -0.5, ErrInvalidDeadband},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAlarmRecord(tt.tag, "desc", tt.priority, tt.setpoint, tt.deadband)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAlarmRecord_Evaluate(t *testing.T) {
	t.Run("value at setpoint activates", func(t *testing.T) {
		a := newTestAlarm(t)

		out := a.Evaluate(150.0, testNow)

		assert.True(t, out.Activation)
		assert.True(t, out.Changed)
		assert.Equal(t, StateNormal, out.Previous)
		assert.Equal(t, StateUnacknowledged, a.State())
		assert.Equal(t, 1, a.OccurrenceCount())
		require.NotNil(t, a.Snapshot().TriggeredAt)
		assert.Equal(t, testNow, *a.Snapshot().TriggeredAt)
	})

	t.Run("value below setpoint does nothing in NORMAL", func(t *testing.T) {
		a := newTestAlarm(t)

		out := a.Evaluate(149.999, testNow)

		assert.False(t, out.Changed)
		assert.Equal(t, StateNormal, a.State())
	})

	t.Run("deadband boundary", func(t *testing.T) {
		a := newTestAlarm(t)
		a.Evaluate(155.0, testNow)
		require.Equal(t, StateUnacknowledged, a.State())

		a.Evaluate(149.0, testNow)
		assert.Equal(t, StateUnacknowledged, a.State(), "inside deadband")

		a.Evaluate(148.0, testNow)
		assert.Equal(t, StateUnacknowledged, a.State(), "exactly setpoint-deadband does not clear")

		out := a.Evaluate(147.999, testNow)
		assert.True(t, out.Changed)
		assert.True(t, out.Returned())
		assert.Equal(t, StateReturnedUnacknowledged, a.State())
	})

	t.Run("active alarm does not re-trigger", func(t *testing.T) {
		a := newTestAlarm(t)
		a.Evaluate(155.0, testNow)
		a.Evaluate(160.0, testNow.Add(time.Second))

		assert.Equal(t, 1, a.OccurrenceCount())
		assert.Equal(t, testNow, *a.Snapshot().TriggeredAt)
	})

	t.Run("acknowledged alarm returns to RTN", func(t *testing.T) {
		a := newTestAlarm(t)
		a.Evaluate(155.0, testNow)
		a.Acknowledge(testNow)

		a.Evaluate(145.0, testNow)

		assert.Equal(t, StateReturnedUnacknowledged, a.State())
	})

	t.Run("RTN stays until acknowledged even if value rises", func(t *testing.T) {
		a := newTestAlarm(t)
		a.Evaluate(155.0, testNow)
		a.Evaluate(140.0, testNow)
		require.Equal(t, StateReturnedUnacknowledged, a.State())

		out := a.Evaluate(200.0, testNow)

		assert.False(t, out.Changed)
		assert.Equal(t, StateReturnedUnacknowledged, a.State())
		assert.Equal(t, 1, a.OccurrenceCount())
	})

	t.Run("NaN never transitions", func(t *testing.T) {
		a := newTestAlarm(t)
		out := a.Evaluate(math.NaN(), testNow)
		assert.False(t, out.Changed)
		assert.Equal(t, StateNormal, a.State())

		a.Evaluate(155.0, testNow)
		out = a.Evaluate(math.NaN(), testNow)
		assert.False(t, out.Changed)
		assert.Equal(t, StateUnacknowledged, a.State())
	})

	t.Run("infinities compare normally", func(t *testing.T) {
		a := newTestAlarm(t)
		a.Evaluate(math.Inf(1), testNow)
		assert.Equal(t, StateUnacknowledged, a.State())

		a.Evaluate(math.Inf(-1), testNow)
		assert.Equal(t, StateReturnedUnacknowledged, a.State())
	})

	t.Run("zero deadband clears strictly below setpoint", func(t *testing.T) {
		a, err := NewAlarmRecord("LT404", "Tank Level High", PriorityLow, 80.0, 0)
		require.NoError(t, err)

		a.Evaluate(80.0, testNow)
		a.Evaluate(80.0, testNow)
		assert.Equal(t, StateUnacknowledged, a.State())

		a.Evaluate(79.9, testNow)
		assert.Equal(t, StateReturnedUnacknowledged, a.State())
	})
}

func TestAlarmRecord_EvaluateGating(t *testing.T) {
	tests := []struct {
		name  string
		setup func(a *AlarmRecord)
		want  State
	}{
		{"disabled", func(a *AlarmRecord) { a.SetEnabled(false) }, StateOutOfService},
		{"suppressed", func(a *AlarmRecord) { a.Suppress() }, StateSuppressed},
		{"shelved", func(a *AlarmRecord) { a.Shelve() }, StateShelved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAlarm(t)
			tt.setup(a)

			out := a.Evaluate(500.0, testNow)

			assert.False(t, out.Changed)
			assert.Equal(t, tt.want, a.State())
			assert.Zero(t, a.OccurrenceCount())
		})
	}
}

func TestAlarmRecord_Acknowledge(t *testing.T) {
	t.Run("UNACK to ACK", func(t *testing.T) {
		a := newTestAlarm(t)
		a.Evaluate(155.0, testNow)

		ackAt := testNow.Add(time.Minute)
		out := a.Acknowledge(ackAt)

		assert.True(t, out.Changed)
		assert.Equal(t, StateAcknowledged, a.State())
		require.NotNil(t, a.Snapshot().LastAcknowledgedAt)
		assert.Equal(t, ackAt, *a.Snapshot().LastAcknowledgedAt)
	})

	t.Run("RTN to NORMAL", func(t *testing.T) {
		a := newTestAlarm(t)
		a.Evaluate(155.0, testNow)
		a.Evaluate(100.0, testNow)

		out := a.Acknowledge(testNow)

		assert.True(t, out.Changed)
		assert.Equal(t, StateNormal, a.State())
	})

	t.Run("ignored in other states", func(t *testing.T) {
		for _, setup := range []func(a *AlarmRecord){
			func(a *AlarmRecord) {},
			func(a *AlarmRecord) { a.Evaluate(155.0, testNow); a.Acknowledge(testNow) },
			func(a *AlarmRecord) { a.Shelve() },
			func(a *AlarmRecord) { a.Suppress() },
			func(a *AlarmRecord) { a.SetEnabled(false) },
		} {
			a := newTestAlarm(t)
			setup(a)
			before := a.Snapshot()

			out := a.Acknowledge(testNow.Add(time.Hour))

			assert.False(t, out.Changed)
			assert.Equal(t, before, a.Snapshot())
		}
	})
}

func TestAlarmRecord_ShelveLosesHistory(t *testing.T) {
	a := newTestAlarm(t)
	a.Evaluate(155.0, testNow)
	a.Acknowledge(testNow)
	require.Equal(t, StateAcknowledged, a.State())

	out := a.Shelve()
	assert.True(t, out.Changed)
	assert.Equal(t, StateShelved, a.State())
	assert.True(t, a.Shelved())

	out = a.Unshelve()
	assert.True(t, out.Changed)
	assert.Equal(t, StateNormal, a.State())
	assert.False(t, a.Shelved())

	// the standing condition is detected again as a new occurrence
	a.Evaluate(155.0, testNow)
	assert.Equal(t, StateUnacknowledged, a.State())
	assert.Equal(t, 2, a.OccurrenceCount())
}

func TestAlarmRecord_Shelve(t *testing.T) {
	t.Run("out of service cannot be shelved", func(t *testing.T) {
		a := newTestAlarm(t)
		a.SetEnabled(false)

		out := a.Shelve()

		assert.False(t, out.Changed)
		assert.Equal(t, StateOutOfService, a.State())
		assert.False(t, a.Shelved())
	})

	t.Run("shelving twice reports no change", func(t *testing.T) {
		a := newTestAlarm(t)
		a.Shelve()

		out := a.Shelve()

		assert.False(t, out.Changed)
	})

	t.Run("unshelve is a no-op unless shelved", func(t *testing.T) {
		a := newTestAlarm(t)
		a.Evaluate(155.0, testNow)

		out := a.Unshelve()

		assert.False(t, out.Changed)
		assert.Equal(t, StateUnacknowledged, a.State())
	})
}

func TestAlarmRecord_Suppress(t *testing.T) {
	t.Run("active alarm becomes SUPPRESSED", func(t *testing.T) {
		a := newTestAlarm(t)
		a.Evaluate(155.0, testNow)

		out := a.Suppress()

		assert.True(t, out.Changed)
		assert.Equal(t, StateSuppressed, a.State())
		assert.True(t, a.Suppressed())
	})

	t.Run("unsuppress returns to NORMAL", func(t *testing.T) {
		a := newTestAlarm(t)
		a.Suppress()

		out := a.Unsuppress()

		assert.True(t, out.Changed)
		assert.Equal(t, StateNormal, a.State())
		assert.False(t, a.Suppressed())
	})

	t.Run("out of service only sets the flag", func(t *testing.T) {
		a := newTestAlarm(t)
		a.SetEnabled(false)

		out := a.Suppress()

		assert.True(t, out.Changed)
		assert.Equal(t, StateOutOfService, a.State())
		assert.True(t, a.Suppressed())

		a.Unsuppress()
		assert.Equal(t, StateOutOfService, a.State())
		assert.False(t, a.Suppressed())
	})

	t.Run("shelved alarm stays SHELVED", func(t *testing.T) {
		a := newTestAlarm(t)
		a.Shelve()

		a.Suppress()

		assert.Equal(t, StateShelved, a.State())
		assert.True(t, a.Suppressed())
	})

	t.Run("unsuppress when not suppressed", func(t *testing.T) {
		a := newTestAlarm(t)

		out := a.Unsuppress()

		assert.False(t, out.Changed)
	})
}

func TestAlarmRecord_SetEnabled(t *testing.T) {
	t.Run("disable from any state goes OUT_OF_SERVICE", func(t *testing.T) {
		for _, setup := range []func(a *AlarmRecord){
			func(a *AlarmRecord) {},
			func(a *AlarmRecord) { a.Evaluate(155.0, testNow) },
			func(a *AlarmRecord) { a.Shelve() },
			func(a *AlarmRecord) { a.Suppress() },
		} {
			a := newTestAlarm(t)
			setup(a)

			out := a.SetEnabled(false)

			assert.True(t, out.Changed)
			assert.Equal(t, StateOutOfService, a.State())
			assert.False(t, a.Enabled())
			assert.False(t, a.Shelved())
		}
	})

	t.Run("enable returns to NORMAL without re-evaluating", func(t *testing.T) {
		a := newTestAlarm(t)
		a.Evaluate(155.0, testNow)
		a.SetEnabled(false)

		out := a.SetEnabled(true)

		assert.True(t, out.Changed)
		assert.Equal(t, StateNormal, a.State())
		assert.Equal(t, 1, a.OccurrenceCount())
	})

	t.Run("enable an enabled alarm is a no-op", func(t *testing.T) {
		a := newTestAlarm(t)
		a.Evaluate(155.0, testNow)

		out := a.SetEnabled(true)

		assert.False(t, out.Changed)
		assert.Equal(t, StateUnacknowledged, a.State())
	})

	t.Run("disable twice reports no change", func(t *testing.T) {
		a := newTestAlarm(t)
		a.SetEnabled(false)

		out := a.SetEnabled(false)

		assert.False(t, out.Changed)
	})
}

func TestAlarmRecord_OccurrenceCountMonotonic(t *testing.T) {
	a := newTestAlarm(t)
	values := []float64{155, 140, 155, 100, 151, 0, 160}
	last := 0

	for _, v := range values {
		a.Evaluate(v, testNow)
		if a.State() == StateReturnedUnacknowledged {
			a.Acknowledge(testNow)
		}
		assert.GreaterOrEqual(t, a.OccurrenceCount(), last)
		last = a.OccurrenceCount()
	}

	assert.Equal(t, 4, a.OccurrenceCount())
}

func TestAlarmRecord_StateFlagConsistency(t *testing.T) {
	ops := []func(a *AlarmRecord){
		func(a *AlarmRecord) { a.Evaluate(155, testNow) },
		func(a *AlarmRecord) { a.Evaluate(100, testNow) },
		func(a *AlarmRecord) { a.Acknowledge(testNow) },
		func(a *AlarmRecord) { a.Shelve() },
		func(a *AlarmRecord) { a.Unshelve() },
		func(a *AlarmRecord) { a.Suppress() },
		func(a *AlarmRecord) { a.Unsuppress() },
		func(a *AlarmRecord) { a.SetEnabled(false) },
		func(a *AlarmRecord) { a.SetEnabled(true) },
	}

	a := newTestAlarm(t)
	for i := 0; i < 500; i++ {
		ops[(i*7+i/3)%len(ops)](a)

		assert.Equal(t, !a.Enabled(), a.State() == StateOutOfService, "enabled/OOS at step %d", i)
		assert.Equal(t, a.Shelved(), a.State() == StateShelved, "shelved/SHELVED at step %d", i)
		if a.State() == StateSuppressed {
			assert.True(t, a.Suppressed(), "SUPPRESSED without flag at step %d", i)
		}
	}
}

func TestAlarmSnapshot_IsIndependent(t *testing.T) {
	a := newTestAlarm(t)
	a.Evaluate(155.0, testNow)

	snap := a.Snapshot()
	*snap.TriggeredAt = snap.TriggeredAt.Add(time.Hour)

	assert.Equal(t, testNow, *a.Snapshot().TriggeredAt)
	assert.Equal(t, 148.0, snap.ClearLimit())
	assert.True(t, snap.IsActive())
}

func TestAlarmRecord_CloneIsIndependent(t *testing.T) {
	a := newTestAlarm(t)
	a.Evaluate(155.0, testNow)
	a.Acknowledge(testNow)

	c := a.Clone()
	a.Evaluate(100.0, testNow.Add(time.Minute))
	a.SetEnabled(false)

	assert.Equal(t, StateAcknowledged, c.State())
	assert.True(t, c.Enabled())
	assert.Equal(t, 1, c.OccurrenceCount())
	assert.Equal(t, testNow, *c.Snapshot().TriggeredAt)
	assert.Equal(t, StateOutOfService, a.State())

	c.Evaluate(100.0, testNow.Add(time.Minute))
	assert.Equal(t, StateReturnedUnacknowledged, c.State())
	assert.Equal(t, StateOutOfService, a.State())
}
