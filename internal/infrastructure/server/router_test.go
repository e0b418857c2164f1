package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/handler"
	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/handler/middleware"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/observability"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/persistence/memory"
	"github.com/qj0r9j0vc2/alarm-engine/internal/usecase/alarm"
)

const (
	testSecret  = "0123456789abcdef0123456789abcdef"
	slackSecret = "8f742231b10e8888abcd99yyyzzz85a5"
)

type routerFixture struct {
	handler  http.Handler
	registry *alarm.Registry
	reader   *sdkmetric.ManualReader
}

func setupRouter(t *testing.T, secret string) *routerFixture {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	metrics, err := observability.NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	journal := memory.NewAlarmEventRepository()
	registry := alarm.NewRegistry(alarm.WithPublisher(alarm.EventPublisherFunc(func(e *entity.AlarmEvent) {
		_ = journal.Save(context.Background(), e)
	})))
	record, err := entity.NewAlarmRecord("TT101", "Reactor Temperature High", entity.PriorityHigh, 150, 2)
	require.NoError(t, err)
	require.NoError(t, registry.Register(record))

	log := logger.Nop()
	query := alarm.NewQueryAlarmsUseCase(registry, journal)
	handlers := &Handlers{
		Alarm: handler.NewAlarmHandler(
			alarm.NewIngestProcessValueUseCase(registry, metrics, log),
			alarm.NewOperatorCommandUseCase(registry, log),
			query,
			log,
		),
		Report: handler.NewReportHandler(query, log),
		Health: handler.NewHealthHandler("test"),
		Ready:  handler.NewReadyHandler(),
		Slack: handler.NewSlackHandler(
			alarm.NewOperatorCommandUseCase(registry, log),
			query,
			log,
		),
	}

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewRouter(handlers, RouterConfig{
		RequestTimeout: 5 * time.Second,
		JWTSecret:      secret,
		JWTIssuer:      "alarm-engine",
		Metrics:        metrics,

		SlackSigningSecret: slackSecret,
	}, slogger)

	return &routerFixture{handler: h, registry: registry, reader: reader}
}

func (f *routerFixture) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func TestRouter_Routes(t *testing.T) {
	f := setupRouter(t, "")

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"root", http.MethodGet, "/", "", http.StatusOK},
		{"ready", http.MethodGet, "/ready", "", http.StatusOK},
		{"ingest", http.MethodPost, "/api/v1/process-values", `{"samples":[{"tag":"TT101","value":151}]}`, http.StatusOK},
		{"list", http.MethodGet, "/api/v1/alarms", "", http.StatusOK},
		{"active", http.MethodGet, "/api/v1/alarms/active", "", http.StatusOK},
		{"one alarm", http.MethodGet, "/api/v1/alarms/TT101", "", http.StatusOK},
		{"command", http.MethodPost, "/api/v1/alarms/TT101/acknowledge", "", http.StatusOK},
		{"summary", http.MethodGet, "/api/v1/summary", "", http.StatusOK},
		{"events", http.MethodGet, "/api/v1/events", "", http.StatusOK},
		{"xlsx", http.MethodGet, "/api/v1/reports/alarms.xlsx", "", http.StatusOK},
		{"pdf", http.MethodGet, "/api/v1/reports/summary.pdf", "", http.StatusOK},
		{"wrong method", http.MethodGet, "/api/v1/process-values", "", http.StatusMethodNotAllowed},
		{"command needs post", http.MethodGet, "/api/v1/alarms/TT101/acknowledge", "", http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "/api/v2/alarms", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}

	snap, err := f.registry.Alarm("TT101")
	require.NoError(t, err)
	assert.Equal(t, entity.StateAcknowledged, snap.State)
}

func TestRouter_CommandRequiresToken(t *testing.T) {
	f := setupRouter(t, testSecret)
	_, err := f.registry.UpdateProcessValue("TT101", 155)
	require.NoError(t, err)

	w := f.do(http.MethodPost, "/api/v1/alarms/TT101/acknowledge", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "jdoe",
			Issuer:    "alarm-engine",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	w = f.do(http.MethodPost, "/api/v1/alarms/TT101/acknowledge", "", "Authorization", "Bearer "+signed)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"current_state":"ACKNOWLEDGED"`)

	// read routes stay open
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/summary", "").Code)
}

func TestRouter_RecordsRoutePattern(t *testing.T) {
	f := setupRouter(t, "")
	f.do(http.MethodGet, "/api/v1/alarms/TT101", "")
	f.do(http.MethodGet, "/api/v2/alarms", "")

	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))

	routes := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http.server.requests.total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value(attribute.Key("http.route")); ok {
					routes[v.AsString()] = true
				}
			}
		}
	}
	assert.True(t, routes["GET /api/v1/alarms/{tag}"], "routes: %v", routes)
	assert.True(t, routes["unmatched"], "routes: %v", routes)
}

func TestRouter_SlackCommandsRequireSignature(t *testing.T) {
	f := setupRouter(t, "")
	_, err := f.registry.UpdateProcessValue("TT101", 155)
	require.NoError(t, err)
	body := "command=%2Falarms&text=ack+TT101&user_id=U042&user_name=jdoe"

	w := f.do(http.MethodPost, "/slack/commands", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(slackSecret))
	mac.Write([]byte("v0:" + ts + ":" + body))

	req := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	w = httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"response_type":"in_channel"`)

	snapshot, err := f.registry.Alarm("TT101")
	require.NoError(t, err)
	assert.Equal(t, entity.StateAcknowledged, snapshot.State)
}
