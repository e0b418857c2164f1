package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/dto"
	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/handler/middleware"
	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/presenter"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/alarm-engine/internal/domain/errors"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/repository"
	"github.com/qj0r9j0vc2/alarm-engine/internal/usecase/alarm"
)

const (
	maxSamplesPerRequest = 1000
	maxEventLimit        = 1000
	maxBodyBytes         = 1 << 20
)

// AlarmHandler serves the alarm API: process-value ingestion, operator
// commands and read-only registry and journal views.
type AlarmHandler struct {
	ingest  *alarm.IngestProcessValueUseCase
	command *alarm.OperatorCommandUseCase
	query   *alarm.QueryAlarmsUseCase
	text    *presenter.TextFormatter
	logger  logger.Logger
}

// NewAlarmHandler creates a new handler.
func NewAlarmHandler(
	ingest *alarm.IngestProcessValueUseCase,
	command *alarm.OperatorCommandUseCase,
	query *alarm.QueryAlarmsUseCase,
	logger logger.Logger,
) *AlarmHandler {
	return &AlarmHandler{
		ingest:  ingest,
		command: command,
		query:   query,
		text:    presenter.NewTextFormatter(),
		logger:  logger,
	}
}

// IngestProcessValues handles POST /api/v1/process-values.
// Samples are applied in order; a bad sample does not stop the rest.
func (h *AlarmHandler) IngestProcessValues(w http.ResponseWriter, r *http.Request) {
	var req dto.ProcessValuesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode process values", "error", err)
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "no samples")
		return
	}
	if len(req.Samples) > maxSamplesPerRequest {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("at most %d samples per request", maxSamplesPerRequest))
		return
	}

	resp := dto.ProcessValuesResponse{
		Status:  "ok",
		Results: make([]dto.ProcessValueResult, 0, len(req.Samples)),
	}

	for _, sample := range req.Samples {
		result := dto.ProcessValueResult{Tag: sample.Tag}
		if sample.Value == nil {
			result.Error = "missing value"
			resp.Failed++
			resp.Results = append(resp.Results, result)
			continue
		}

		out, err := h.ingest.Execute(r.Context(), dto.ProcessValueInput{Tag: sample.Tag, Value: *sample.Value})
		if err != nil {
			result.Error = err.Error()
			resp.Failed++
			resp.Results = append(resp.Results, result)
			continue
		}

		result.PreviousState = out.Outcome.Previous.String()
		result.CurrentState = out.Outcome.Current.String()
		result.Triggered = out.Activation
		resp.Processed++
		resp.Results = append(resp.Results, result)
	}

	if resp.Failed > 0 {
		resp.Status = "partial"
		if resp.Processed == 0 {
			resp.Status = "failed"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Command handles POST /api/v1/alarms/{tag}/{action}.
func (h *AlarmHandler) Command(w http.ResponseWriter, r *http.Request) {
	input := dto.CommandInput{
		Tag:      r.PathValue("tag"),
		Action:   r.PathValue("action"),
		Operator: middleware.GetOperator(r.Context()),
	}

	out, err := h.command.Execute(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, domainerrors.ErrUnknownTag):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, alarm.ErrUnknownAction):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("operator command failed",
				"tag", input.Tag,
				"action", input.Action,
				"error", err,
			)
			writeError(w, http.StatusInternalServerError, "command failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.NewCommandResponse(out))
}

// ListAlarms handles GET /api/v1/alarms. ?format=text renders the detail listing.
func (h *AlarmHandler) ListAlarms(w http.ResponseWriter, r *http.Request) {
	alarms := h.query.All(r.Context())
	if wantsText(r) {
		writeText(w, h.text.FormatAlarms(alarms))
		return
	}
	writeJSON(w, http.StatusOK, dto.AlarmListResponse{
		Count:  len(alarms),
		Alarms: dto.NewAlarmResponses(alarms),
	})
}

// ListActive handles GET /api/v1/alarms/active.
func (h *AlarmHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	active := h.query.Active(r.Context())
	writeJSON(w, http.StatusOK, dto.AlarmListResponse{
		Count:  len(active),
		Alarms: dto.NewAlarmResponses(active),
	})
}

// GetAlarm handles GET /api/v1/alarms/{tag}.
func (h *AlarmHandler) GetAlarm(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.query.Alarm(r.Context(), r.PathValue("tag"))
	if err != nil {
		if errors.Is(err, domainerrors.ErrUnknownTag) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "reading alarm failed")
		return
	}
	if wantsText(r) {
		writeText(w, h.text.FormatAlarm(snapshot))
		return
	}
	writeJSON(w, http.StatusOK, dto.NewAlarmResponse(snapshot))
}

// Summary handles GET /api/v1/summary. ?format=text renders the summary layout.
func (h *AlarmHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, active := h.query.Summary(r.Context())
	if wantsText(r) {
		writeText(w, h.text.FormatSummary(summary, active))
		return
	}
	writeJSON(w, http.StatusOK, dto.NewSummaryResponse(summary, active))
}

// Events handles GET /api/v1/events?tag=&type=&since=&limit=.
func (h *AlarmHandler) Events(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEventFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.query.Events(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query alarm events", "error", err)
		writeError(w, http.StatusInternalServerError, "querying events failed")
		return
	}

	resp := dto.EventListResponse{
		Count:  len(events),
		Events: make([]dto.EventResponse, 0, len(events)),
	}
	for _, e := range events {
		resp.Events = append(resp.Events, dto.NewEventResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseEventFilter(r *http.Request) (repository.EventFilter, error) {
	q := r.URL.Query()
	var filter repository.EventFilter

	if tag := q.Get("tag"); tag != "" {
		parsed, err := entity.ParseTag(tag)
		if err != nil {
			return filter, fmt.Errorf("invalid tag: %w", err)
		}
		filter.Tag = parsed
	}
	if typ := q.Get("type"); typ != "" {
		parsed, err := entity.ParseEventType(typ)
		if err != nil {
			return filter, err
		}
		filter.Type = parsed
	}
	if since := q.Get("since"); since != "" {
		parsed, err := parseSince(since)
		if err != nil {
			return filter, err
		}
		filter.Since = parsed
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return filter, fmt.Errorf("invalid limit: %q", limit)
		}
		filter.Limit = min(n, maxEventLimit)
	}
	return filter, nil
}

// parseSince accepts an RFC 3339 timestamp or a duration such as "15m",
// meaning that long before now.
func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return time.Now().Add(-d), nil
	}
	return time.Time{}, fmt.Errorf("invalid since: %q (want RFC 3339 time or duration)", s)
}

func wantsText(r *http.Request) bool {
	return r.URL.Query().Get("format") == "text"
}
