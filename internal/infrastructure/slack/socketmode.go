package slack

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/config"
)

// OperatorHandler receives operator input from Slack.
type OperatorHandler interface {
	// HandleInteraction runs the alarm buttons clicked in a message.
	HandleInteraction(ctx context.Context, callback slack.InteractionCallback) error
	// HandleCommand runs a slash command and returns the reply text.
	HandleCommand(ctx context.Context, cmd slack.SlashCommand) (string, error)
}

// ReconnectConfig bounds the reconnect loop of a SocketMode client.
type ReconnectConfig struct {
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	MaxFailures       int // consecutive failed connects before Run gives up
}

// DefaultReconnectConfig returns the reconnect settings used by NewSocketMode.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        60 * time.Second,
		BackoffMultiplier: 1.5,
		MaxFailures:       5,
	}
}

// Backoff returns the delay before reconnect attempt n (0-based).
func (c ReconnectConfig) Backoff(attempt int) time.Duration {
	backoff := float64(c.InitialBackoff) * math.Pow(c.BackoffMultiplier, float64(attempt))
	if backoff > float64(c.MaxBackoff) {
		backoff = float64(c.MaxBackoff)
	}
	return time.Duration(backoff)
}

// SocketMode receives button clicks and slash commands over a Slack Socket
// Mode websocket, so no public endpoint is needed.
type SocketMode struct {
	api       *slack.Client
	client    *socketmode.Client
	handler   OperatorHandler
	logger    logger.Logger
	reconnect ReconnectConfig

	ack       func(req socketmode.Request, payload ...interface{})
	connected atomic.Bool
}

// NewSocketMode creates a Socket Mode client that routes operator input to handler.
func NewSocketMode(botToken, apiURL string, cfg config.SocketModeConfig, handler OperatorHandler, log logger.Logger) (*SocketMode, error) {
	if cfg.AppToken == "" {
		return nil, errors.New("socket mode app token is required")
	}
	if botToken == "" {
		return nil, errors.New("bot token is required")
	}

	opts := []slack.Option{
		slack.OptionDebug(cfg.Debug),
		slack.OptionAppLevelToken(cfg.AppToken),
	}
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	api := slack.New(botToken, opts...)
	client := socketmode.New(api, socketmode.OptionDebug(cfg.Debug))

	return &SocketMode{
		api:       api,
		client:    client,
		handler:   handler,
		logger:    log,
		reconnect: DefaultReconnectConfig(),
		ack:       client.Ack,
	}, nil
}

// Connected reports whether the websocket is currently up.
func (s *SocketMode) Connected() bool {
	return s.connected.Load()
}

// Run connects and processes events until ctx is cancelled. Failed connects
// are retried with backoff; Run gives up after MaxFailures in a row.
func (s *SocketMode) Run(ctx context.Context) error {
	go s.eventLoop(ctx)

	failures := 0
	for {
		err := s.connect(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			failures = 0
			s.logger.Warn("slack socket mode connection closed, reconnecting")
		} else {
			failures++
			s.logger.Warn("slack socket mode connect failed",
				"error", err,
				"consecutive_failures", failures,
			)
			if failures >= s.reconnect.MaxFailures {
				return fmt.Errorf("slack socket mode: giving up after %d failures: %w", failures, err)
			}
		}

		backoff := s.reconnect.Backoff(failures)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
	}
}

func (s *SocketMode) connect(ctx context.Context) error {
	auth, err := s.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("auth test: %w", err)
	}
	s.logger.Info("slack socket mode authenticated",
		"team_id", auth.TeamID,
		"user_id", auth.UserID,
	)
	return s.client.RunContext(ctx)
}

func (s *SocketMode) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.connected.Store(false)
			return
		case evt, ok := <-s.client.Events:
			if !ok {
				return
			}
			s.handleEvent(ctx, evt)
		}
	}
}

func (s *SocketMode) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		s.logger.Debug("connecting to slack socket mode")

	case socketmode.EventTypeConnected:
		s.connected.Store(true)
		s.logger.Info("connected to slack socket mode")

	case socketmode.EventTypeConnectionError, socketmode.EventTypeDisconnect:
		s.connected.Store(false)
		s.logger.Warn("slack socket mode disconnected", "type", evt.Type)

	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slack.InteractionCallback)
		if !ok || evt.Request == nil {
			s.logger.Warn("unexpected interactive event payload")
			return
		}
		s.ack(*evt.Request)

		if err := s.handler.HandleInteraction(ctx, callback); err != nil {
			s.logger.Error("slack interaction failed",
				"user", callback.User.ID,
				"error", err,
			)
		}

	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok || evt.Request == nil {
			s.logger.Warn("unexpected slash command payload")
			return
		}

		text, err := s.handler.HandleCommand(ctx, cmd)
		if err != nil {
			s.logger.Error("slack command failed",
				"command", cmd.Command,
				"user", cmd.UserID,
				"error", err,
			)
			text = "Command failed, see server logs."
		}
		s.ack(*evt.Request, map[string]string{
			"response_type": "ephemeral",
			"text":          text,
		})

	case socketmode.EventTypeEventsAPI:
		if _, ok := evt.Data.(slackevents.EventsAPIEvent); ok && evt.Request != nil {
			s.ack(*evt.Request)
		}

	default:
		s.logger.Debug("unhandled slack socket mode event", "type", evt.Type)
	}
}
