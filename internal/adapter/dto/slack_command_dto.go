package dto

import "strings"

// Slash command verbs that only read the registry.
const (
	SlackVerbSummary = "summary"
	SlackVerbList    = "list"
	SlackVerbHelp    = "help"
)

// SlackCommandDTO is a parsed /alarms slash command.
//
//	/alarms                 -> summary
//	/alarms list            -> list
//	/alarms TT101           -> show, Tag TT101
//	/alarms ack TT101       -> acknowledge, Tag TT101
type SlackCommandDTO struct {
	Verb     string
	Tag      string
	UserID   string
	UserName string
}

// verbAliases maps short forms to operator actions.
var verbAliases = map[string]string{
	"ack":   "acknowledge",
	"oos":   "disable",
	"rts":   "enable",
	"unsup": "unsuppress",
}

// ParseSlackCommand splits the command text into a verb and an optional tag.
// A single word that is not a known verb is taken as a tag to show.
func ParseSlackCommand(text, userID, userName string) SlackCommandDTO {
	cmd := SlackCommandDTO{UserID: userID, UserName: userName}

	fields := strings.Fields(text)
	switch len(fields) {
	case 0:
		cmd.Verb = SlackVerbSummary
		return cmd
	case 1:
		word := strings.ToLower(fields[0])
		switch word {
		case SlackVerbSummary, SlackVerbList, SlackVerbHelp:
			cmd.Verb = word
		default:
			cmd.Verb = "show"
			cmd.Tag = fields[0]
		}
		return cmd
	}

	verb := strings.ToLower(fields[0])
	if alias, ok := verbAliases[verb]; ok {
		verb = alias
	}
	cmd.Verb = verb
	cmd.Tag = fields[1]
	return cmd
}

// Operator returns the name recorded on events raised by this command.
func (c SlackCommandDTO) Operator() string {
	if c.UserName != "" {
		return c.UserName
	}
	return c.UserID
}
