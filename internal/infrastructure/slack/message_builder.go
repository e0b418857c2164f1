package slack

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/slack-go/slack"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
)

// Priority color codes for the attachment bar
const (
	colorCritical = "#E01E5A" // Red
	colorHigh     = "#F2711C" // Orange
	colorMedium   = "#ECB22E" // Yellow
	colorLow      = "#36C5F0" // Blue
	colorCleared  = "#2EB67D" // Green
	colorInactive = "#9E9E9E" // Grey
)

// ActionIDPrefix prefixes the action_id of every alarm button. The rest of the
// action_id is the operator action and the button value is the alarm tag.
const ActionIDPrefix = "alarm:"

// ParseActionID returns the operator action encoded in a button action_id.
func ParseActionID(actionID string) (string, bool) {
	action, ok := strings.CutPrefix(actionID, ActionIDPrefix)
	return action, ok && action != ""
}

// MessageBuilder constructs Slack Block Kit messages for alarm events.
type MessageBuilder struct{}

// NewMessageBuilder creates a new message builder.
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{}
}

// BuildAlarmMessage creates the blocks for an alarm event. The same layout is
// used for the first post and every later update, so the message always shows
// the alarm's latest state.
func (b *MessageBuilder) BuildAlarmMessage(event *entity.AlarmEvent) []slack.Block {
	if event.IsRegistryEvent() {
		return b.buildCapacityMessage(event)
	}

	var blocks []slack.Block

	blocks = append(blocks, slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, b.statusLine(event), false, false),
		nil, nil,
	))

	blocks = append(blocks, slack.NewHeaderBlock(
		slack.NewTextBlockObject(slack.PlainTextType, fmt.Sprintf("%s  %s", event.Tag, event.Description), true, false),
	))

	blocks = append(blocks, b.buildDetailsSection(event))
	if actions := b.buildActions(event); actions != nil {
		blocks = append(blocks, actions)
	}
	blocks = append(blocks, slack.NewDividerBlock())
	blocks = append(blocks, b.buildContext(event))

	return blocks
}

func (b *MessageBuilder) buildCapacityMessage(event *entity.AlarmEvent) []slack.Block {
	return []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("🚨  *ALARM CAPACITY EXCEEDED*\n%d active alarms, capacity %d", event.TotalActive, event.Capacity),
				false, false),
			nil, nil,
		),
		b.buildContext(event),
	}
}

// statusLine returns the banner with an emoji, the state and the priority badge.
func (b *MessageBuilder) statusLine(event *entity.AlarmEvent) string {
	return fmt.Sprintf("%s  *%s*  %s", stateEmoji(event.CurrentState), event.CurrentState, priorityBadge(event.Priority))
}

func (b *MessageBuilder) buildDetailsSection(event *entity.AlarmEvent) *slack.SectionBlock {
	fields := []*slack.TextBlockObject{
		markdown(fmt.Sprintf("*State*\n%s → %s", event.PreviousState, event.CurrentState)),
		markdown(fmt.Sprintf("*Priority*\n%s", event.Priority)),
	}

	if event.Value != nil {
		fields = append(fields, markdown(fmt.Sprintf("*Value*\n`%s`", strconv.FormatFloat(*event.Value, 'f', -1, 64))))
	}

	fields = append(fields,
		markdown(fmt.Sprintf("*Occurrences*\n%d", event.OccurrenceCount)),
		markdown(fmt.Sprintf("*Active alarms*\n%d / %d", event.TotalActive, event.Capacity)),
	)

	if event.Operator != "" {
		fields = append(fields, markdown(fmt.Sprintf("*Operator*\n%s", event.Operator)))
	}

	return slack.NewSectionBlock(nil, fields, nil)
}

// buildActions returns the operator buttons that apply to the alarm's current state.
func (b *MessageBuilder) buildActions(event *entity.AlarmEvent) *slack.ActionBlock {
	var buttons []slack.BlockElement

	switch event.CurrentState {
	case entity.StateUnacknowledged, entity.StateReturnedUnacknowledged:
		ack := button(event, "acknowledge", "Acknowledge")
		ack.Style = slack.StylePrimary
		buttons = append(buttons, ack, button(event, "shelve", "Shelve"))
	case entity.StateAcknowledged, entity.StateNormal:
		buttons = append(buttons, button(event, "shelve", "Shelve"))
	case entity.StateShelved:
		buttons = append(buttons, button(event, "unshelve", "Unshelve"))
	case entity.StateSuppressed:
		buttons = append(buttons, button(event, "unsuppress", "Unsuppress"))
	case entity.StateOutOfService:
		buttons = append(buttons, button(event, "enable", "Return to service"))
	}

	if len(buttons) == 0 {
		return nil
	}
	return slack.NewActionBlock("alarm_actions_"+event.Tag.String(), buttons...)
}

func button(event *entity.AlarmEvent, action, label string) *slack.ButtonBlockElement {
	return slack.NewButtonBlockElement(
		ActionIDPrefix+action,
		event.Tag.String(),
		slack.NewTextBlockObject(slack.PlainTextType, label, false, false),
	)
}

func (b *MessageBuilder) buildContext(event *entity.AlarmEvent) *slack.ContextBlock {
	return slack.NewContextBlock("",
		markdown(fmt.Sprintf("%s at *%s*  •  seq %d",
			event.Type, event.OccurredAt.Format("Jan 2, 15:04:05 MST"), event.Sequence)),
	)
}

// Color returns the attachment color for the event.
func (b *MessageBuilder) Color(event *entity.AlarmEvent) string {
	if event.IsRegistryEvent() {
		return colorCritical
	}
	switch event.CurrentState {
	case entity.StateNormal:
		return colorCleared
	case entity.StateOutOfService, entity.StateShelved, entity.StateSuppressed:
		return colorInactive
	}
	switch event.Priority {
	case entity.PriorityCritical:
		return colorCritical
	case entity.PriorityHigh:
		return colorHigh
	case entity.PriorityMedium:
		return colorMedium
	default:
		return colorLow
	}
}

// FallbackText is shown in notifications and by clients that cannot render blocks.
func (b *MessageBuilder) FallbackText(event *entity.AlarmEvent) string {
	if event.IsRegistryEvent() {
		return fmt.Sprintf("Alarm capacity exceeded: %d active, capacity %d", event.TotalActive, event.Capacity)
	}
	return fmt.Sprintf("[%s] %s %s: %s", event.Priority, event.Tag, event.Description, event.CurrentState)
}

func stateEmoji(s entity.State) string {
	switch s {
	case entity.StateUnacknowledged:
		return "🚨"
	case entity.StateAcknowledged:
		return "👁️"
	case entity.StateReturnedUnacknowledged:
		return "↩️"
	case entity.StateNormal:
		return "✅"
	case entity.StateShelved:
		return "🗄️"
	case entity.StateSuppressed:
		return "🔕"
	default:
		return "⛔"
	}
}

func priorityBadge(p entity.Priority) string {
	switch p {
	case entity.PriorityCritical:
		return fmt.Sprintf("`🔴 %s`", p)
	case entity.PriorityHigh:
		return fmt.Sprintf("`🟠 %s`", p)
	case entity.PriorityMedium:
		return fmt.Sprintf("`🟡 %s`", p)
	default:
		return fmt.Sprintf("`🔵 %s`", p)
	}
}

func markdown(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}
