package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/alarm-engine/internal/domain/errors"
)

type slackCall struct {
	method  string
	channel string
	ts      string
	text    string
	attach  string
}

type mockSlack struct {
	mu       sync.Mutex
	calls    []slackCall
	response map[string]any
}

func (m *mockSlack) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	m.mu.Lock()
	m.calls = append(m.calls, slackCall{
		method:  strings.TrimPrefix(r.URL.Path, "/"),
		channel: r.Form.Get("channel"),
		ts:      r.Form.Get("ts"),
		text:    r.Form.Get("text"),
		attach:  r.Form.Get("attachments"),
	})
	resp := m.response
	m.mu.Unlock()

	if resp == nil {
		resp = map[string]any{"ok": true, "channel": "C123", "ts": "1700000000.000100"}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (m *mockSlack) snapshot() []slackCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]slackCall(nil), m.calls...)
}

func (m *mockSlack) respond(resp map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = resp
}

func setupSlackTest(t *testing.T) (*Client, *mockSlack) {
	t.Helper()

	mock := &mockSlack{}
	server := httptest.NewServer(mock)
	t.Cleanup(server.Close)

	return NewClient("xoxb-test", "C123", server.URL+"/"), mock
}

func triggeredEvent(t *testing.T) *entity.AlarmEvent {
	t.Helper()

	record, err := entity.NewAlarmRecord("TT101", "Reactor Temperature High", entity.PriorityHigh, 150, 2)
	require.NoError(t, err)
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	out := record.Evaluate(155, at)
	return entity.NewAlarmEvent(entity.EventAlarmTriggered, record.Snapshot(), out, at).
		WithValue(155).
		WithAggregates(1, 100)
}

func TestClient_Notify(t *testing.T) {
	client, mock := setupSlackTest(t)

	id, err := client.Notify(context.Background(), triggeredEvent(t))
	require.NoError(t, err)
	assert.Equal(t, "C123:1700000000.000100", id)

	calls := mock.snapshot()
	require.Len(t, calls, 1)
	call := calls[0]
	assert.Equal(t, "chat.postMessage", call.method)
	assert.Equal(t, "C123", call.channel)
	assert.Equal(t, "[HIGH] TT101 Reactor Temperature High: UNACKNOWLEDGED", call.text)
	assert.Contains(t, call.attach, colorHigh)
	assert.Contains(t, call.attach, "Reactor Temperature High")
}

func TestClient_UpdateMessage(t *testing.T) {
	client, mock := setupSlackTest(t)

	event := triggeredEvent(t)
	event.Type = entity.EventAlarmAcknowledged
	event.PreviousState = entity.StateUnacknowledged
	event.CurrentState = entity.StateAcknowledged
	event.Operator = "alice"

	require.NoError(t, client.UpdateMessage(context.Background(), "C123:1700000000.000100", event))

	calls := mock.snapshot()
	require.Len(t, calls, 1)
	call := calls[0]
	assert.Equal(t, "chat.update", call.method)
	assert.Equal(t, "1700000000.000100", call.ts)
	assert.Contains(t, call.attach, "alice")
}

func TestClient_UpdateMessage_InvalidID(t *testing.T) {
	client, mock := setupSlackTest(t)

	err := client.UpdateMessage(context.Background(), "no-separator", triggeredEvent(t))
	require.Error(t, err)
	assert.True(t, domainerrors.IsPermanentError(err))
	assert.Empty(t, mock.snapshot())
}

func TestClient_ErrorCategories(t *testing.T) {
	tests := []struct {
		slackError string
		transient  bool
	}{
		{"rate_limited", true},
		{"internal_error", true},
		{"channel_not_found", false},
		{"invalid_auth", false},
	}

	for _, tt := range tests {
		t.Run(tt.slackError, func(t *testing.T) {
			client, mock := setupSlackTest(t)
			mock.respond(map[string]any{"ok": false, "error": tt.slackError})

			_, err := client.Notify(context.Background(), triggeredEvent(t))
			require.Error(t, err)
			assert.Equal(t, tt.transient, domainerrors.IsTransientError(err))
			assert.Equal(t, !tt.transient, domainerrors.IsPermanentError(err))
		})
	}
}

func TestClient_ContextCanceledIsTransient(t *testing.T) {
	client, _ := setupSlackTest(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Notify(ctx, triggeredEvent(t))
	require.Error(t, err)
	assert.True(t, domainerrors.IsTransientError(err))
}

func TestParseMessageID(t *testing.T) {
	ch, ts, err := parseMessageID("C1:123.456")
	require.NoError(t, err)
	assert.Equal(t, "C1", ch)
	assert.Equal(t, "123.456", ts)

	for _, bad := range []string{"", "C1", ":123", "C1:"} {
		_, _, err := parseMessageID(bad)
		assert.Error(t, err, bad)
	}
}
