package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/slack-go/slack"

	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/dto"
	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/presenter"
	domainerrors "github.com/qj0r9j0vc2/alarm-engine/internal/domain/errors"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
	infraslack "github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/slack"
	"github.com/qj0r9j0vc2/alarm-engine/internal/usecase/alarm"
)

const slackUsage = "Usage:\n" +
	"  /alarms                 alarm summary\n" +
	"  /alarms list            every configured alarm\n" +
	"  /alarms <tag>           one alarm\n" +
	"  /alarms <action> <tag>  acknowledge (ack), shelve, unshelve, suppress, unsuppress, enable, disable\n"

// SlackHandler turns Slack button clicks and /alarms commands into
// operator commands and registry queries.
type SlackHandler struct {
	command *alarm.OperatorCommandUseCase
	query   *alarm.QueryAlarmsUseCase
	text    *presenter.TextFormatter
	logger  logger.Logger
}

// NewSlackHandler creates a new Slack handler.
func NewSlackHandler(
	command *alarm.OperatorCommandUseCase,
	query *alarm.QueryAlarmsUseCase,
	logger logger.Logger,
) *SlackHandler {
	return &SlackHandler{
		command: command,
		query:   query,
		text:    presenter.NewTextFormatter(),
		logger:  logger,
	}
}

// HandleInteraction runs every alarm button in a block_actions callback.
// Buttons from other apps are ignored.
func (h *SlackHandler) HandleInteraction(ctx context.Context, callback slack.InteractionCallback) error {
	if callback.Type != slack.InteractionTypeBlockActions {
		h.logger.Debug("ignoring slack interaction", "type", callback.Type)
		return nil
	}

	operator := callback.User.Name
	if operator == "" {
		operator = callback.User.ID
	}

	var errs []error
	for _, action := range callback.ActionCallback.BlockActions {
		verb, ok := infraslack.ParseActionID(action.ActionID)
		if !ok {
			continue
		}

		out, err := h.command.Execute(ctx, dto.CommandInput{
			Tag:      action.Value,
			Action:   verb,
			Operator: operator,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", verb, action.Value, err))
			continue
		}
		h.logger.Info("slack operator command",
			"tag", out.Tag,
			"action", out.Action,
			"operator", operator,
			"changed", out.Outcome.Changed,
		)
	}
	return errors.Join(errs...)
}

// HandleCommand runs an /alarms slash command and returns the reply text.
func (h *SlackHandler) HandleCommand(ctx context.Context, cmd slack.SlashCommand) (string, error) {
	resp, err := h.reply(ctx, dto.ParseSlackCommand(cmd.Text, cmd.UserID, cmd.UserName))
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Interactions handles POST /slack/interactions.
func (h *SlackHandler) Interactions(w http.ResponseWriter, r *http.Request) {
	payload := r.FormValue("payload")
	if payload == "" {
		writeError(w, http.StatusBadRequest, "missing payload")
		return
	}

	var callback slack.InteractionCallback
	if err := json.Unmarshal([]byte(payload), &callback); err != nil {
		h.logger.Warn("failed to decode slack interaction", "error", err)
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	// Slack retries unless it gets a 200 within three seconds.
	if err := h.HandleInteraction(r.Context(), callback); err != nil {
		h.logger.Error("slack interaction failed",
			"user", callback.User.ID,
			"error", err,
		)
	}
	w.WriteHeader(http.StatusOK)
}

// Commands handles POST /slack/commands.
func (h *SlackHandler) Commands(w http.ResponseWriter, r *http.Request) {
	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid command")
		return
	}

	resp, err := h.reply(r.Context(), dto.ParseSlackCommand(cmd.Text, cmd.UserID, cmd.UserName))
	if err != nil {
		h.logger.Error("slack command failed",
			"command", cmd.Command,
			"text", cmd.Text,
			"error", err,
		)
		resp = dto.NewEphemeralResponse("Command failed, see server logs.")
	}
	writeJSON(w, http.StatusOK, resp)
}

// reply answers one parsed command. Operator mistakes (unknown tag or
// action) come back as ephemeral text, not as errors.
func (h *SlackHandler) reply(ctx context.Context, cmd dto.SlackCommandDTO) (*dto.SlackResponseDTO, error) {
	switch cmd.Verb {
	case dto.SlackVerbHelp:
		return dto.NewEphemeralResponse(slackUsage), nil
	case dto.SlackVerbSummary:
		summary, active := h.query.Summary(ctx)
		return dto.NewEphemeralResponse(codeBlock(h.text.FormatSummary(summary, active))), nil
	case dto.SlackVerbList:
		return dto.NewEphemeralResponse(codeBlock(h.text.FormatAlarms(h.query.All(ctx)))), nil
	case "show":
		snapshot, err := h.query.Alarm(ctx, cmd.Tag)
		if errors.Is(err, domainerrors.ErrUnknownTag) {
			return dto.NewEphemeralResponse(err.Error() + "\n" + slackUsage), nil
		}
		if err != nil {
			return nil, err
		}
		return dto.NewEphemeralResponse(codeBlock(h.text.FormatAlarm(snapshot))), nil
	}

	out, err := h.command.Execute(ctx, dto.CommandInput{
		Tag:      cmd.Tag,
		Action:   cmd.Verb,
		Operator: cmd.Operator(),
	})
	switch {
	case errors.Is(err, domainerrors.ErrUnknownTag), errors.Is(err, alarm.ErrUnknownAction):
		return dto.NewEphemeralResponse(err.Error() + "\n" + slackUsage), nil
	case err != nil:
		return nil, err
	}

	if !out.Outcome.Changed {
		return dto.NewEphemeralResponse(fmt.Sprintf("%s: %s has no effect in state %s",
			out.Tag, out.Action, out.Outcome.Current)), nil
	}
	return dto.NewInChannelResponse(fmt.Sprintf("%s %s %s: %s → %s",
		cmd.Operator(), pastTense(out.Action), out.Tag, out.Outcome.Previous, out.Outcome.Current)), nil
}

func pastTense(action string) string {
	if strings.HasSuffix(action, "e") {
		return action + "d"
	}
	return action + "ed"
}

func codeBlock(s string) string {
	return "```\n" + strings.TrimRight(s, "\n") + "\n```"
}
