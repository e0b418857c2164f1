package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/handler"
	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/handler/middleware"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/observability"
)

// Handlers holds all HTTP handlers.
type Handlers struct {
	Alarm   *handler.AlarmHandler
	Report  *handler.ReportHandler
	Health  *handler.HealthHandler
	Ready   *handler.ReadyHandler
	Metrics *handler.MetricsHandler
	Reload  *handler.ReloadHandler
	Slack   *handler.SlackHandler
}

// RouterConfig carries the cross-cutting settings for NewRouter.
type RouterConfig struct {
	RequestTimeout time.Duration
	JWTSecret      string
	JWTIssuer      string
	Metrics        *observability.Metrics

	// SlackSigningSecret enables the Slack endpoints when set.
	SlackSigningSecret string
}

// NewRouter creates the HTTP router with all handlers.
func NewRouter(handlers *Handlers, cfg RouterConfig, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints
	mux.Handle("/health", handlers.Health)
	mux.Handle("/{$}", handlers.Health) // Root path returns health
	if handlers.Ready != nil {
		mux.Handle("/ready", handlers.Ready)
	}
	if handlers.Metrics != nil {
		mux.Handle("/metrics", handlers.Metrics)
	}
	if handlers.Reload != nil {
		mux.Handle("/-/reload", handlers.Reload)
	}

	if a := handlers.Alarm; a != nil {
		auth := middleware.Auth(cfg.JWTSecret, cfg.JWTIssuer, logger)

		mux.HandleFunc("POST /api/v1/process-values", a.IngestProcessValues)
		mux.Handle("POST /api/v1/alarms/{tag}/{action}", auth(http.HandlerFunc(a.Command)))
		mux.HandleFunc("GET /api/v1/alarms", a.ListAlarms)
		mux.HandleFunc("GET /api/v1/alarms/active", a.ListActive)
		mux.HandleFunc("GET /api/v1/alarms/{tag}", a.GetAlarm)
		mux.HandleFunc("GET /api/v1/summary", a.Summary)
		mux.HandleFunc("GET /api/v1/events", a.Events)
	}

	if rp := handlers.Report; rp != nil {
		mux.HandleFunc("GET /api/v1/reports/alarms.xlsx", rp.AlarmsXLSX)
		mux.HandleFunc("GET /api/v1/reports/summary.pdf", rp.SummaryPDF)
	}

	if sl := handlers.Slack; sl != nil && cfg.SlackSigningSecret != "" {
		verify := middleware.SlackSignature(cfg.SlackSigningSecret, logger)
		mux.Handle("POST /slack/interactions", verify(http.HandlerFunc(sl.Interactions)))
		mux.Handle("POST /slack/commands", verify(http.HandlerFunc(sl.Commands)))
	}

	// Apply middleware stack, innermost first
	var h http.Handler = mux
	if cfg.RequestTimeout > 0 {
		h = middleware.Timeout(cfg.RequestTimeout, logger)(h)
	}
	if cfg.Metrics != nil {
		h = middleware.Observability(cfg.Metrics, mux)(h)
	}
	h = middleware.Recovery(logger)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.RequestID(h)

	return h
}
