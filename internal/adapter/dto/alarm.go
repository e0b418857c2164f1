package dto

import (
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
)

// ProcessValuesRequest is the body of POST /api/v1/process-values.
type ProcessValuesRequest struct {
	Samples []ProcessValueSample `json:"samples"`
}

// ProcessValueSample is one fresh reading for one alarm tag.
type ProcessValueSample struct {
	Tag   string   `json:"tag"`
	Value *float64 `json:"value"` // required; pointer distinguishes 0 from missing
}

// ProcessValuesResponse reports the outcome of a batch of samples.
type ProcessValuesResponse struct {
	Status    string               `json:"status"`
	Processed int                  `json:"processed"`
	Failed    int                  `json:"failed"`
	Results   []ProcessValueResult `json:"results"`
}

// ProcessValueResult is the per-sample part of ProcessValuesResponse.
type ProcessValueResult struct {
	Tag           string `json:"tag"`
	PreviousState string `json:"previous_state,omitempty"`
	CurrentState  string `json:"current_state,omitempty"`
	Triggered     bool   `json:"triggered"`
	Error         string `json:"error,omitempty"`
}

// ProcessValueInput represents one sample handed to the ingest use case.
type ProcessValueInput struct {
	Tag   string
	Value float64
}

// ProcessValueOutput represents the result of ingesting one sample.
type ProcessValueOutput struct {
	Tag        string
	Outcome    entity.TransitionOutcome
	Activation bool
}

// CommandInput represents an operator command.
type CommandInput struct {
	Tag      string
	Action   string // acknowledge, shelve, unshelve, suppress, unsuppress, enable, disable
	Operator string
}

// CommandOutput represents the result of an operator command.
type CommandOutput struct {
	Tag     string
	Action  string
	Outcome entity.TransitionOutcome
	Alarm   entity.AlarmSnapshot
}

// CommandResponse is the HTTP body returned for an operator command.
type CommandResponse struct {
	Tag           string        `json:"tag"`
	Action        string        `json:"action"`
	Changed       bool          `json:"changed"`
	PreviousState string        `json:"previous_state"`
	CurrentState  string        `json:"current_state"`
	Alarm         AlarmResponse `json:"alarm"`
}

// NewCommandResponse converts a CommandOutput for the API.
func NewCommandResponse(out *CommandOutput) CommandResponse {
	return CommandResponse{
		Tag:           out.Tag,
		Action:        out.Action,
		Changed:       out.Outcome.Changed,
		PreviousState: out.Outcome.Previous.String(),
		CurrentState:  out.Outcome.Current.String(),
		Alarm:         NewAlarmResponse(out.Alarm),
	}
}

// AlarmResponse is the API view of one alarm.
type AlarmResponse struct {
	Tag                string     `json:"tag"`
	Description        string     `json:"description"`
	Priority           string     `json:"priority"`
	Setpoint           float64    `json:"setpoint"`
	Deadband           float64    `json:"deadband"`
	State              string     `json:"state"`
	Active             bool       `json:"active"`
	Enabled            bool       `json:"enabled"`
	Suppressed         bool       `json:"suppressed"`
	Shelved            bool       `json:"shelved"`
	TriggeredAt        *time.Time `json:"triggered_at,omitempty"`
	LastAcknowledgedAt *time.Time `json:"last_acknowledged_at,omitempty"`
	OccurrenceCount    int        `json:"occurrence_count"`
}

// NewAlarmResponse converts a snapshot for the API.
func NewAlarmResponse(s entity.AlarmSnapshot) AlarmResponse {
	return AlarmResponse{
		Tag:                s.Tag.String(),
		Description:        s.Description,
		Priority:           s.Priority.String(),
		Setpoint:           s.Setpoint,
		Deadband:           s.Deadband,
		State:              s.State.String(),
		Active:             s.IsActive(),
		Enabled:            s.Enabled,
		Suppressed:         s.Suppressed,
		Shelved:            s.Shelved,
		TriggeredAt:        s.TriggeredAt,
		LastAcknowledgedAt: s.LastAcknowledgedAt,
		OccurrenceCount:    s.OccurrenceCount,
	}
}

// NewAlarmResponses converts a list of snapshots, keeping order.
func NewAlarmResponses(snapshots []entity.AlarmSnapshot) []AlarmResponse {
	out := make([]AlarmResponse, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, NewAlarmResponse(s))
	}
	return out
}

// AlarmListResponse wraps a list of alarms.
type AlarmListResponse struct {
	Count  int             `json:"count"`
	Alarms []AlarmResponse `json:"alarms"`
}

// SummaryResponse is the API view of the registry aggregates.
type SummaryResponse struct {
	TotalActive      int             `json:"total_active"`
	Capacity         int             `json:"capacity"`
	CapacityExceeded bool            `json:"capacity_exceeded"`
	ByPriority       map[string]int  `json:"by_priority"`
	ActiveAlarms     []AlarmResponse `json:"active_alarms"`
}

// NewSummaryResponse converts the aggregates and active list for the API.
func NewSummaryResponse(summary entity.AlarmSummary, active []entity.AlarmSnapshot) SummaryResponse {
	byPriority := make(map[string]int, len(summary.CountsByPriority))
	for _, p := range entity.AllPriorities() {
		byPriority[p.String()] = summary.Count(p)
	}
	return SummaryResponse{
		TotalActive:      summary.TotalActive,
		Capacity:         summary.Capacity,
		CapacityExceeded: summary.CapacityExceeded(),
		ByPriority:       byPriority,
		ActiveAlarms:     NewAlarmResponses(active),
	}
}

// EventResponse is the API view of a journal entry.
type EventResponse struct {
	ID              string    `json:"id"`
	Sequence        uint64    `json:"sequence"`
	Type            string    `json:"type"`
	Tag             string    `json:"tag,omitempty"`
	Description     string    `json:"description,omitempty"`
	Priority        string    `json:"priority,omitempty"`
	PreviousState   string    `json:"previous_state,omitempty"`
	CurrentState    string    `json:"current_state,omitempty"`
	Value           *float64  `json:"value,omitempty"`
	OccurrenceCount int       `json:"occurrence_count"`
	Operator        string    `json:"operator,omitempty"`
	TotalActive     int       `json:"total_active"`
	Capacity        int       `json:"capacity"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewEventResponse converts an event for the API.
func NewEventResponse(e *entity.AlarmEvent) EventResponse {
	resp := EventResponse{
		ID:              e.ID,
		Sequence:        e.Sequence,
		Type:            string(e.Type),
		Tag:             e.Tag.String(),
		Description:     e.Description,
		Value:           e.Value,
		OccurrenceCount: e.OccurrenceCount,
		Operator:        e.Operator,
		TotalActive:     e.TotalActive,
		Capacity:        e.Capacity,
		OccurredAt:      e.OccurredAt,
	}
	if !e.IsRegistryEvent() {
		resp.Priority = e.Priority.String()
		resp.PreviousState = e.PreviousState.String()
		resp.CurrentState = e.CurrentState.String()
	}
	return resp
}

// EventListResponse wraps a list of journal entries.
type EventListResponse struct {
	Count  int             `json:"count"`
	Events []EventResponse `json:"events"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Snapshot converts an API alarm back into a snapshot, for API clients.
func (r AlarmResponse) Snapshot() (entity.AlarmSnapshot, error) {
	tag, err := entity.ParseTag(r.Tag)
	if err != nil {
		return entity.AlarmSnapshot{}, err
	}
	priority, err := entity.ParsePriority(r.Priority)
	if err != nil {
		return entity.AlarmSnapshot{}, err
	}
	state, err := entity.ParseState(r.State)
	if err != nil {
		return entity.AlarmSnapshot{}, err
	}
	return entity.AlarmSnapshot{
		Tag:                tag,
		Description:        r.Description,
		Priority:           priority,
		Setpoint:           r.Setpoint,
		Deadband:           r.Deadband,
		State:              state,
		Enabled:            r.Enabled,
		Suppressed:         r.Suppressed,
		Shelved:            r.Shelved,
		TriggeredAt:        r.TriggeredAt,
		LastAcknowledgedAt: r.LastAcknowledgedAt,
		OccurrenceCount:    r.OccurrenceCount,
	}, nil
}

// Snapshots converts a list of API alarms, stopping at the first bad entry.
func Snapshots(alarms []AlarmResponse) ([]entity.AlarmSnapshot, error) {
	out := make([]entity.AlarmSnapshot, 0, len(alarms))
	for _, a := range alarms {
		s, err := a.Snapshot()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Summary converts the API aggregates back into an AlarmSummary.
func (r SummaryResponse) Summary() (entity.AlarmSummary, error) {
	summary := entity.NewAlarmSummary(r.Capacity)
	summary.TotalActive = r.TotalActive
	for name, count := range r.ByPriority {
		p, err := entity.ParsePriority(name)
		if err != nil {
			return entity.AlarmSummary{}, err
		}
		summary.CountsByPriority[p] = count
	}
	return summary, nil
}
