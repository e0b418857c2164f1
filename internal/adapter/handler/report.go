package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/report"
	"github.com/qj0r9j0vc2/alarm-engine/internal/usecase/alarm"
)

// reportWindow is how far back journal counts reach in the workbook.
const reportWindow = 24 * time.Hour

// ReportHandler serves downloadable alarm reports.
type ReportHandler struct {
	query  *alarm.QueryAlarmsUseCase
	logger logger.Logger
	now    func() time.Time
}

// NewReportHandler creates a new report handler.
func NewReportHandler(query *alarm.QueryAlarmsUseCase, logger logger.Logger) *ReportHandler {
	return &ReportHandler{
		query:  query,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AlarmsXLSX handles GET /api/v1/reports/alarms.xlsx.
func (h *ReportHandler) AlarmsXLSX(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	counts, err := h.query.EventCounts(r.Context(), now.Add(-reportWindow))
	if err != nil {
		h.logger.Error("failed to count alarm events for report", "error", err)
		writeError(w, http.StatusInternalServerError, "building report failed")
		return
	}

	summary, _ := h.query.Summary(r.Context())
	body, err := report.BuildAlarmsXLSX(report.Data{
		Summary:     summary,
		Alarms:      h.query.All(r.Context()),
		EventCounts: counts,
		GeneratedAt: now,
	})
	if err != nil {
		h.logger.Error("failed to build xlsx report", "error", err)
		writeError(w, http.StatusInternalServerError, "building report failed")
		return
	}

	writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		fmt.Sprintf("alarms-%s.xlsx", now.Format("20060102-150405")), body)
}

// SummaryPDF handles GET /api/v1/reports/summary.pdf.
func (h *ReportHandler) SummaryPDF(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	summary, active := h.query.Summary(r.Context())

	body, err := report.BuildSummaryPDF(report.Data{
		Summary:     summary,
		Alarms:      active,
		GeneratedAt: now,
	})
	if err != nil {
		h.logger.Error("failed to build pdf report", "error", err)
		writeError(w, http.StatusInternalServerError, "building report failed")
		return
	}

	writeAttachment(w, "application/pdf", fmt.Sprintf("alarm-summary-%s.pdf", now.Format("20060102-150405")), body)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
