package slack

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/slack-go/slack"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/alarm-engine/internal/domain/errors"
)

// Client wraps the Slack API client with alarm-specific operations.
// Implements the alarm.Notifier interface.
type Client struct {
	api            *slack.Client
	channelID      string
	messageBuilder *MessageBuilder
}

// NewClient creates a new Slack client. apiURL overrides the Slack endpoint
// and is used by tests; it must end with a slash.
func NewClient(botToken, channelID string, apiURL ...string) *Client {
	var api *slack.Client
	if len(apiURL) > 0 && apiURL[0] != "" {
		api = slack.New(botToken, slack.OptionAPIURL(apiURL[0]))
	} else {
		api = slack.New(botToken)
	}

	return &Client{
		api:            api,
		channelID:      channelID,
		messageBuilder: NewMessageBuilder(),
	}
}

// Notify posts a new alarm message.
// Returns the message ID in the format "channel:timestamp".
func (c *Client) Notify(ctx context.Context, event *entity.AlarmEvent) (string, error) {
	channelID, timestamp, err := c.api.PostMessageContext(ctx, c.channelID, c.messageOptions(event)...)
	if err != nil {
		return "", categorizeSlackError(err, "posting slack message")
	}

	return fmt.Sprintf("%s:%s", channelID, timestamp), nil
}

// UpdateMessage rewrites an existing alarm message in place.
func (c *Client) UpdateMessage(ctx context.Context, messageID string, event *entity.AlarmEvent) error {
	channelID, timestamp, err := parseMessageID(messageID)
	if err != nil {
		return domainerrors.NewPermanentError("updating slack message", err)
	}

	_, _, _, err = c.api.UpdateMessageContext(ctx, channelID, timestamp, c.messageOptions(event)...)
	if err != nil {
		return categorizeSlackError(err, "updating slack message")
	}

	return nil
}

// Name returns the notifier identifier.
func (c *Client) Name() string {
	return "slack"
}

func (c *Client) messageOptions(event *entity.AlarmEvent) []slack.MsgOption {
	return []slack.MsgOption{
		slack.MsgOptionText(c.messageBuilder.FallbackText(event), false),
		slack.MsgOptionAttachments(slack.Attachment{
			Color:  c.messageBuilder.Color(event),
			Blocks: slack.Blocks{BlockSet: c.messageBuilder.BuildAlarmMessage(event)},
		}),
	}
}

// categorizeSlackError wraps Slack API errors as transient or permanent domain errors.
func categorizeSlackError(err error, operation string) error {
	if err == nil {
		return nil
	}

	// Network errors are transient
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domainerrors.NewTransientError(fmt.Sprintf("%s: network error", operation), err)
	}

	// HTTP 429 from the Web API
	var rateErr *slack.RateLimitedError
	if errors.As(err, &rateErr) {
		return domainerrors.NewTransientError(fmt.Sprintf("%s: rate limited", operation), err)
	}

	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		switch slackErr.Err {
		case "rate_limited", "ratelimited":
			return domainerrors.NewTransientError(fmt.Sprintf("%s: rate limited", operation), err)
		case "internal_error", "fatal_error", "service_unavailable", "request_timeout":
			return domainerrors.NewTransientError(fmt.Sprintf("%s: slack server error", operation), err)
		default:
			// invalid_auth, channel_not_found, message_not_found and the rest
			return domainerrors.NewPermanentError(fmt.Sprintf("%s: %s", operation, slackErr.Err), err)
		}
	}

	var statusErr slack.StatusCodeError
	if errors.As(err, &statusErr) && statusErr.Code >= 500 {
		return domainerrors.NewTransientError(fmt.Sprintf("%s: slack server error", operation), err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domainerrors.NewTransientError(fmt.Sprintf("%s: context timeout", operation), err)
	}

	return domainerrors.NewPermanentError(fmt.Sprintf("%s: %v", operation, err), err)
}

// parseMessageID parses a message ID in the format "channel:timestamp".
func parseMessageID(messageID string) (channelID, timestamp string, err error) {
	channelID, timestamp, ok := strings.Cut(messageID, ":")
	if !ok || channelID == "" || timestamp == "" {
		return "", "", fmt.Errorf("invalid message ID format: %s", messageID)
	}
	return channelID, timestamp, nil
}
