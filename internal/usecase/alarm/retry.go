package alarm

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/alarm-engine/internal/domain/errors"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
)

// RetryPolicy defines the retry behavior for failed notifications.
type RetryPolicy struct {
	MaxAttempts     int           // attempts including the first try
	InitialInterval time.Duration // backoff before the second attempt
	MaxInterval     time.Duration // backoff ceiling
	Multiplier      float64       // growth per attempt
	JitterFactor    float64       // random spread, 0.0-1.0
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// RetryObserver is told about every retry; the observability package counts them.
type RetryObserver interface {
	RecordNotificationRetry(ctx context.Context, notifier string)
}

// RetryableNotifier wraps a Notifier and retries transient failures with
// exponential backoff. Permanent failures are returned at once.
type RetryableNotifier struct {
	notifier Notifier
	policy   RetryPolicy
	logger   logger.Logger
	observer RetryObserver
}

// NewRetryableNotifier creates a new RetryableNotifier with the given policy.
func NewRetryableNotifier(notifier Notifier, policy RetryPolicy, log logger.Logger) *RetryableNotifier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &RetryableNotifier{
		notifier: notifier,
		policy:   policy,
		logger:   log,
	}
}

// WithObserver attaches a retry observer.
func (r *RetryableNotifier) WithObserver(o RetryObserver) *RetryableNotifier {
	r.observer = o
	return r
}

// Notify sends a notification, retrying transient failures.
func (r *RetryableNotifier) Notify(ctx context.Context, event *entity.AlarmEvent) (string, error) {
	var messageID string
	err := r.do(ctx, "notify", event, func() error {
		var err error
		messageID, err = r.notifier.Notify(ctx, event)
		return err
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// UpdateMessage updates a notification, retrying transient failures.
func (r *RetryableNotifier) UpdateMessage(ctx context.Context, messageID string, event *entity.AlarmEvent) error {
	return r.do(ctx, "update message", event, func() error {
		return r.notifier.UpdateMessage(ctx, messageID, event)
	})
}

// Name returns the underlying notifier name.
func (r *RetryableNotifier) Name() string {
	return r.notifier.Name()
}

func (r *RetryableNotifier) do(ctx context.Context, op string, event *entity.AlarmEvent, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				r.logger.Info(op+" succeeded after retry",
					"notifier", r.notifier.Name(),
					"tag", event.Tag,
					"attempt", attempt,
				)
			}
			return nil
		}

		if !domainerrors.IsTransientError(lastErr) {
			r.logger.Warn(op+" failed with permanent error",
				"notifier", r.notifier.Name(),
				"tag", event.Tag,
				"event_type", event.Type,
				"error", lastErr,
			)
			return lastErr
		}

		if attempt == r.policy.MaxAttempts {
			r.logger.Error(op+" failed after max retries",
				"notifier", r.notifier.Name(),
				"tag", event.Tag,
				"attempts", attempt,
				"error", lastErr,
			)
			break
		}

		backoff := r.calculateBackoff(attempt)
		r.logger.Warn(op+" failed, retrying",
			"notifier", r.notifier.Name(),
			"tag", event.Tag,
			"attempt", attempt,
			"backoff", backoff,
			"error", lastErr,
		)
		if r.observer != nil {
			r.observer.RecordNotificationRetry(ctx, r.notifier.Name())
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}

// calculateBackoff returns min(InitialInterval * Multiplier^(attempt-1) * (1 ± jitter), MaxInterval).
func (r *RetryableNotifier) calculateBackoff(attempt int) time.Duration {
	backoff := float64(r.policy.InitialInterval) * math.Pow(r.policy.Multiplier, float64(attempt-1))

	jitter := 1.0 + (rand.Float64()*2.0-1.0)*r.policy.JitterFactor
	backoff *= jitter

	if r.policy.MaxInterval > 0 && backoff > float64(r.policy.MaxInterval) {
		backoff = float64(r.policy.MaxInterval)
	}

	return time.Duration(backoff)
}
