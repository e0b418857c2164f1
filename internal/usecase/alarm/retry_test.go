package alarm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/alarm-engine/internal/domain/errors"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
)

type flakyNotifier struct {
	failures int
	err      error
	attempts int
}

func (f *flakyNotifier) Notify(context.Context, *entity.AlarmEvent) (string, error) {
	f.attempts++
	if f.attempts <= f.failures {
		return "", f.err
	}
	return "msg-1", nil
}

func (f *flakyNotifier) UpdateMessage(context.Context, string, *entity.AlarmEvent) error {
	f.attempts++
	if f.attempts <= f.failures {
		return f.err
	}
	return nil
}

func (f *flakyNotifier) Name() string { return "flaky" }

type countingObserver struct{ retries int }

func (c *countingObserver) RecordNotificationRetry(context.Context, string) { c.retries++ }

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestRetryableNotifier(t *testing.T) {
	event := &entity.AlarmEvent{Type: entity.EventAlarmTriggered, Tag: "TT101"}
	transient := domainerrors.NewTransientError("rate limited", errors.New("429"))
	permanent := domainerrors.NewPermanentError("invalid_auth", nil)

	tests := []struct {
		name         string
		failures     int
		err          error
		wantErr      bool
		wantAttempts int
		wantRetries  int
	}{
		{"succeeds first time", 0, nil, false, 1, 0},
		{"recovers from transient failure", 2, transient, false, 3, 2},
		{"gives up after max attempts", 5, transient, true, 3, 2},
		{"permanent error is not retried", 5, permanent, true, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &flakyNotifier{failures: tt.failures, err: tt.err}
			obs := &countingObserver{}
			r := NewRetryableNotifier(inner, fastPolicy(), logger.Nop()).WithObserver(obs)

			id, err := r.Notify(context.Background(), event)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, id)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "msg-1", id)
			}
			assert.Equal(t, tt.wantAttempts, inner.attempts)
			assert.Equal(t, tt.wantRetries, obs.retries)
			assert.Equal(t, "flaky", r.Name())
		})
	}
}

func TestRetryableNotifier_UpdateMessage(t *testing.T) {
	inner := &flakyNotifier{failures: 1, err: domainerrors.NewTransientError("timeout", nil)}
	r := NewRetryableNotifier(inner, fastPolicy(), logger.Nop())

	err := r.UpdateMessage(context.Background(), "msg-1", &entity.AlarmEvent{Tag: "TT101"})

	require.NoError(t, err)
	assert.Equal(t, 2, inner.attempts)
}

func TestRetryableNotifier_ContextCancelled(t *testing.T) {
	inner := &flakyNotifier{failures: 10, err: domainerrors.NewTransientError("timeout", nil)}
	policy := fastPolicy()
	policy.InitialInterval = time.Hour
	policy.MaxInterval = time.Hour
	r := NewRetryableNotifier(inner, policy, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Notify(ctx, &entity.AlarmEvent{Tag: "TT101"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.attempts)
}

func TestCalculateBackoff(t *testing.T) {
	r := NewRetryableNotifier(&flakyNotifier{}, RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     300 * time.Millisecond,
		Multiplier:      2,
	}, logger.Nop())

	assert.Equal(t, 100*time.Millisecond, r.calculateBackoff(1))
	assert.Equal(t, 200*time.Millisecond, r.calculateBackoff(2))
	assert.Equal(t, 300*time.Millisecond, r.calculateBackoff(3))
}
