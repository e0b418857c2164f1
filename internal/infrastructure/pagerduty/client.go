package pagerduty

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/PagerDuty/go-pagerduty"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/alarm-engine/internal/domain/errors"
)

const (
	actionTrigger     = "trigger"
	actionAcknowledge = "acknowledge"
	actionResolve     = "resolve"

	capacityDedupKey = "capacity"
)

// Client sends alarm events to the PagerDuty Events API v2.
// Implements the alarm.Notifier interface.
type Client struct {
	events     *pagerduty.Client
	routingKey string
	source     string
	component  string
	clientName string
}

// Option configures optional payload fields.
type Option func(*Client)

// WithSource sets the payload source (defaults to "alarm-engine").
func WithSource(source string) Option {
	return func(c *Client) {
		if source != "" {
			c.source = source
		}
	}
}

// WithComponent sets the payload component.
func WithComponent(component string) Option {
	return func(c *Client) { c.component = component }
}

// WithClientName sets the client name shown on the incident.
func WithClientName(name string) Option {
	return func(c *Client) { c.clientName = name }
}

// WithEventsURL points the client at another Events API host (used by tests).
func WithEventsURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.events = pagerduty.NewClient("", pagerduty.WithV2EventsAPIEndpoint(strings.TrimSuffix(url, "/")))
		}
	}
}

// NewClient creates a new PagerDuty client.
func NewClient(routingKey string, opts ...Option) *Client {
	c := &Client{
		events:     pagerduty.NewClient(""),
		routingKey: routingKey,
		source:     "alarm-engine",
		clientName: "alarm-engine",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notify triggers an incident for a new alarm occurrence.
// Returns the dedup key as message ID.
func (c *Client) Notify(ctx context.Context, event *entity.AlarmEvent) (string, error) {
	if c.routingKey == "" {
		return "", domainerrors.NewPermanentError("pagerduty routing key not configured", nil)
	}

	dedupKey := buildDedupKey(event)
	resp, err := c.send(ctx, &pagerduty.V2Event{
		RoutingKey: c.routingKey,
		Action:     actionTrigger,
		DedupKey:   dedupKey,
		Client:     c.clientName,
		Payload:    c.buildPayload(event),
	})
	if err != nil {
		return "", categorizePagerDutyError(err, "triggering pagerduty incident")
	}

	if resp != nil && resp.DedupKey != "" {
		return resp.DedupKey, nil
	}
	return dedupKey, nil
}

// UpdateMessage moves the incident along with the alarm: ACKNOWLEDGED sends
// acknowledge, leaving the active set sends resolve. Every other state keeps
// the incident open and sends nothing.
func (c *Client) UpdateMessage(ctx context.Context, dedupKey string, event *entity.AlarmEvent) error {
	if c.routingKey == "" {
		return domainerrors.NewPermanentError("pagerduty routing key not configured", nil)
	}

	action := actionFor(event.CurrentState)
	if action == "" {
		return nil
	}

	_, err := c.send(ctx, &pagerduty.V2Event{
		RoutingKey: c.routingKey,
		Action:     action,
		DedupKey:   dedupKey,
		Client:     c.clientName,
	})
	if err != nil {
		return categorizePagerDutyError(err, fmt.Sprintf("sending pagerduty %s", action))
	}
	return nil
}

// Name returns the notifier identifier.
func (c *Client) Name() string {
	return "pagerduty"
}

func (c *Client) send(ctx context.Context, event *pagerduty.V2Event) (*pagerduty.V2EventResponse, error) {
	return c.events.ManageEventWithContext(ctx, event)
}

func actionFor(state entity.State) string {
	switch {
	case state == entity.StateAcknowledged:
		return actionAcknowledge
	case !state.CountsAsActive():
		return actionResolve
	default:
		return ""
	}
}

// buildDedupKey returns "<tag>-<occurrence>" so every activation opens its own incident.
func buildDedupKey(event *entity.AlarmEvent) string {
	if event.IsRegistryEvent() {
		return capacityDedupKey
	}
	return fmt.Sprintf("%s-%d", event.Tag, event.OccurrenceCount)
}

func (c *Client) buildPayload(event *entity.AlarmEvent) *pagerduty.V2Payload {
	return &pagerduty.V2Payload{
		Summary:   buildSummary(event),
		Source:    c.source,
		Severity:  mapSeverity(event),
		Timestamp: event.OccurredAt.Format("2006-01-02T15:04:05.000Z"),
		Component: c.component,
		Group:     priorityGroup(event),
		Class:     string(event.Type),
		Details:   buildDetails(event),
	}
}

func buildSummary(event *entity.AlarmEvent) string {
	if event.IsRegistryEvent() {
		return fmt.Sprintf("Alarm capacity exceeded: %d active alarms (capacity %d)", event.TotalActive, event.Capacity)
	}

	parts := []string{fmt.Sprintf("[%s]", event.Priority), event.Tag.String()}
	if event.Description != "" {
		parts = append(parts, event.Description)
	}
	if event.Value != nil {
		parts = append(parts, fmt.Sprintf("(value %g)", *event.Value))
	}
	return strings.Join(parts, " ")
}

func buildDetails(event *entity.AlarmEvent) map[string]interface{} {
	details := map[string]interface{}{
		"event_id":     event.ID,
		"event_type":   string(event.Type),
		"total_active": event.TotalActive,
		"capacity":     event.Capacity,
	}
	if event.IsRegistryEvent() {
		return details
	}

	details["tag"] = event.Tag.String()
	details["description"] = event.Description
	details["priority"] = event.Priority.String()
	details["state"] = event.CurrentState.String()
	details["previous_state"] = event.PreviousState.String()
	details["occurrence"] = event.OccurrenceCount
	if event.Value != nil {
		details["value"] = *event.Value
	}
	if event.Operator != "" {
		details["operator"] = event.Operator
	}
	return details
}

// mapSeverity maps alarm priority to PagerDuty severity.
func mapSeverity(event *entity.AlarmEvent) string {
	if event.IsRegistryEvent() {
		return "warning"
	}
	switch event.Priority {
	case entity.PriorityCritical:
		return "critical"
	case entity.PriorityHigh:
		return "error"
	case entity.PriorityMedium:
		return "warning"
	default:
		return "info"
	}
}

func priorityGroup(event *entity.AlarmEvent) string {
	if event.IsRegistryEvent() {
		return "registry"
	}
	return strings.ToLower(event.Priority.String())
}

// categorizePagerDutyError wraps PagerDuty API errors as transient or permanent domain errors.
func categorizePagerDutyError(err error, operation string) error {
	if err == nil {
		return nil
	}

	// Check for network errors (transient)
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domainerrors.NewTransientError(fmt.Sprintf("%s: network error", operation), err)
	}

	if status, ok := statusCode(err); ok {
		switch {
		case status == 429:
			return domainerrors.NewTransientError(fmt.Sprintf("%s: rate limited", operation), err)
		case status >= 500 && status < 600:
			return domainerrors.NewTransientError(
				fmt.Sprintf("%s: pagerduty server error (status %d)", operation, status), err)
		case status >= 400 && status < 500:
			return domainerrors.NewPermanentError(
				fmt.Sprintf("%s: client error (status %d)", operation, status), err)
		}
	}

	// Check for context errors (transient)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domainerrors.NewTransientError(fmt.Sprintf("%s: context timeout", operation), err)
	}

	return domainerrors.NewPermanentError(fmt.Sprintf("%s: %v", operation, err), err)
}

func statusCode(err error) (int, bool) {
	var eventsErr pagerduty.EventsAPIV2Error
	if errors.As(err, &eventsErr) {
		return eventsErr.StatusCode, true
	}
	var apiErr pagerduty.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}
