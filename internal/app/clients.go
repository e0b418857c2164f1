package app

import (
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/pagerduty"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/resilience"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/slack"
	"github.com/qj0r9j0vc2/alarm-engine/internal/usecase/alarm"
)

// Clients holds all external integration clients
type Clients struct {
	Notifiers []alarm.Notifier
	Slack     *slack.Client
	PagerDuty *pagerduty.Client
}

func (app *Application) initializeClients() {
	app.clients = &Clients{
		Notifiers: make([]alarm.Notifier, 0),
	}

	if app.config.IsSlackEnabled() {
		app.clients.Slack = slack.NewClient(
			app.config.Slack.BotToken,
			app.config.Slack.ChannelID,
			app.config.Slack.APIURL,
		)
		app.clients.Notifiers = append(app.clients.Notifiers, app.wrapNotifier(app.clients.Slack))

		app.logger.Get().Info("Slack integration enabled",
			"channel", app.config.Slack.ChannelID,
		)
	}

	if app.config.IsPagerDutyEnabled() {
		pd := app.config.PagerDuty
		app.clients.PagerDuty = pagerduty.NewClient(
			pd.RoutingKey,
			pagerduty.WithEventsURL(pd.EventsURL),
			pagerduty.WithSource(pd.Source),
			pagerduty.WithComponent(pd.Component),
			pagerduty.WithClientName(pd.ClientName),
		)
		app.clients.Notifiers = append(app.clients.Notifiers, app.wrapNotifier(app.clients.PagerDuty))

		app.logger.Get().Info("PagerDuty integration enabled")
	}
}

// wrapNotifier puts the circuit breaker (when enabled) inside the retry layer,
// so an open circuit fails each delivery once instead of being retried.
func (app *Application) wrapNotifier(n alarm.Notifier) alarm.Notifier {
	notifications := app.config.Notifications

	if cb := notifications.CircuitBreaker; cb.Enabled {
		n = resilience.NewNotifier(n, cb.MaxFailures, cb.ResetTimeout, app.log)
	}

	retry := notifications.Retry
	policy := alarm.RetryPolicy{
		MaxAttempts:     retry.MaxAttempts,
		InitialInterval: retry.InitialInterval,
		MaxInterval:     retry.MaxInterval,
		Multiplier:      retry.Multiplier,
		JitterFactor:    retry.JitterFactor,
	}
	return alarm.NewRetryableNotifier(n, policy, app.log).WithObserver(app.telemetry.Metrics)
}
