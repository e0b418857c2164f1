package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/dto"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/repository"
	"github.com/qj0r9j0vc2/alarm-engine/internal/usecase/alarm"
)

func setupSlackHandler(t *testing.T) (*SlackHandler, *testAPI) {
	t.Helper()

	api := setupAlarmAPI(t)
	log := logger.Nop()
	h := NewSlackHandler(
		alarm.NewOperatorCommandUseCase(api.registry, log),
		alarm.NewQueryAlarmsUseCase(api.registry, api.journal),
		log,
	)

	_, err := api.registry.UpdateProcessValue("TT101", 155)
	require.NoError(t, err)
	return h, api
}

func stateOf(t *testing.T, api *testAPI, tag entity.Tag) entity.State {
	t.Helper()
	snapshot, err := api.registry.Alarm(tag)
	require.NoError(t, err)
	return snapshot.State
}

func lastEvent(t *testing.T, api *testAPI) *entity.AlarmEvent {
	t.Helper()
	events, err := api.journal.Find(context.Background(), repository.EventFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, events, 1)
	return events[0]
}

func buttonClick(actionID, tag string) slack.InteractionCallback {
	cb := slack.InteractionCallback{Type: slack.InteractionTypeBlockActions}
	cb.User.ID = "U042"
	cb.User.Name = "jdoe"
	cb.ActionCallback.BlockActions = []*slack.BlockAction{
		{ActionID: actionID, BlockID: "alarm_actions_" + tag, Value: tag},
	}
	return cb
}

func TestSlackHandler_HandleInteraction(t *testing.T) {
	h, api := setupSlackHandler(t)
	ctx := context.Background()

	require.NoError(t, h.HandleInteraction(ctx, buttonClick("alarm:acknowledge", "TT101")))
	assert.Equal(t, entity.StateAcknowledged, stateOf(t, api, "TT101"))

	last := lastEvent(t, api)
	assert.Equal(t, entity.EventAlarmAcknowledged, last.Type)
	assert.Equal(t, "jdoe", last.Operator)

	// buttons owned by something else are skipped
	require.NoError(t, h.HandleInteraction(ctx, buttonClick("other:shelve", "TT101")))
	assert.Equal(t, entity.StateAcknowledged, stateOf(t, api, "TT101"))

	err := h.HandleInteraction(ctx, buttonClick("alarm:shelve", "XX999"))
	assert.ErrorContains(t, err, "unknown alarm tag: XX999")

	// non block_actions callbacks are ignored
	cb := buttonClick("alarm:shelve", "TT101")
	cb.Type = slack.InteractionTypeViewSubmission
	require.NoError(t, h.HandleInteraction(ctx, cb))
	assert.Equal(t, entity.StateAcknowledged, stateOf(t, api, "TT101"))
}

func TestSlackHandler_HandleInteraction_FallsBackToUserID(t *testing.T) {
	h, api := setupSlackHandler(t)

	cb := buttonClick("alarm:shelve", "TT101")
	cb.User.Name = ""
	require.NoError(t, h.HandleInteraction(context.Background(), cb))

	assert.Equal(t, "U042", lastEvent(t, api).Operator)
}

func TestSlackHandler_HandleCommand(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		contains []string
		state    entity.State
	}{
		{"summary", "", []string{"=== ALARM SUMMARY ===", "TT101 (HIGH) - UNACKNOWLEDGED"}, entity.StateUnacknowledged},
		{"list", "list", []string{"FT303", "LT404"}, entity.StateUnacknowledged},
		{"show", "TT101", []string{"TT101", "Reactor Temperature High"}, entity.StateUnacknowledged},
		{"help", "help", []string{"Usage:"}, entity.StateUnacknowledged},
		{"acknowledge", "ack TT101", []string{"jdoe acknowledged TT101: UNACKNOWLEDGED → ACKNOWLEDGED"}, entity.StateAcknowledged},
		{"shelve", "shelve TT101", []string{"jdoe shelved TT101"}, entity.StateShelved},
		{"no effect", "unshelve TT101", []string{"TT101: unshelve has no effect in state UNACKNOWLEDGED"}, entity.StateUnacknowledged},
		{"unknown tag", "ack XX999", []string{"unknown alarm tag: XX999", "Usage:"}, entity.StateUnacknowledged},
		{"unknown show", "XX999", []string{"unknown alarm tag: XX999"}, entity.StateUnacknowledged},
		{"unknown action", "explode TT101", []string{"unknown alarm action"}, entity.StateUnacknowledged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, api := setupSlackHandler(t)

			text, err := h.HandleCommand(context.Background(), slack.SlashCommand{
				Command:  "/alarms",
				Text:     tt.text,
				UserID:   "U042",
				UserName: "jdoe",
			})
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, text, want)
			}
			assert.Equal(t, tt.state, stateOf(t, api, "TT101"))
		})
	}
}

func TestSlackHandler_Commands(t *testing.T) {
	h, api := setupSlackHandler(t)

	post := func(text string) dto.SlackResponseDTO {
		form := url.Values{
			"command":   {"/alarms"},
			"text":      {text},
			"user_id":   {"U042"},
			"user_name": {"jdoe"},
		}
		req := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		h.Commands(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		return decode[dto.SlackResponseDTO](t, w)
	}

	resp := post("summary")
	assert.Equal(t, "ephemeral", resp.ResponseType)
	assert.Contains(t, resp.Text, "Total Active Alarms: 1")

	resp = post("ack TT101")
	assert.Equal(t, "in_channel", resp.ResponseType)
	assert.Equal(t, entity.StateAcknowledged, stateOf(t, api, "TT101"))
}

func TestSlackHandler_Interactions(t *testing.T) {
	h, api := setupSlackHandler(t)

	post := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/slack/interactions", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		h.Interactions(w, req)
		return w
	}

	payload := `{"type":"block_actions","user":{"id":"U042","name":"jdoe"},` +
		`"actions":[{"type":"button","action_id":"alarm:acknowledge","block_id":"alarm_actions_TT101","value":"TT101"}]}`
	w := post(url.Values{"payload": {payload}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.StateAcknowledged, stateOf(t, api, "TT101"))

	assert.Equal(t, http.StatusBadRequest, post(url.Values{}).Code)
	assert.Equal(t, http.StatusBadRequest, post(url.Values{"payload": {"{not json"}}).Code)
}
