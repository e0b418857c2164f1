package dto

// SlackResponseDTO is the JSON body answered to a Slack slash command.
type SlackResponseDTO struct {
	ResponseType string `json:"response_type"` // "ephemeral" or "in_channel"
	Text         string `json:"text"`
}

// NewEphemeralResponse creates a response only the invoking user sees.
func NewEphemeralResponse(text string) *SlackResponseDTO {
	return &SlackResponseDTO{
		ResponseType: "ephemeral",
		Text:         text,
	}
}

// NewInChannelResponse creates a response visible to the whole channel.
func NewInChannelResponse(text string) *SlackResponseDTO {
	return &SlackResponseDTO{
		ResponseType: "in_channel",
		Text:         text,
	}
}
