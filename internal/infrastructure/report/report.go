// Package report renders alarm registry snapshots as downloadable documents.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
)

const (
	alarmsSheet  = "alarms"
	summarySheet = "summary"
	eventsSheet  = "events"

	timeFormat = "2006-01-02 15:04:05"
)

var alarmColumns = []string{
	"Tag", "Description", "Priority", "Setpoint", "Deadband", "Clear Limit", "State",
	"Enabled", "Shelved", "Suppressed", "Occurrences", "Triggered At", "Last Acknowledged At",
}

// Data is everything a report renders.
type Data struct {
	Summary     entity.AlarmSummary
	Alarms      []entity.AlarmSnapshot
	EventCounts map[entity.EventType]int
	GeneratedAt time.Time
}

// BuildAlarmsXLSX renders the configured alarms, the registry aggregates and
// the journal's per-type event counts as a workbook.
func BuildAlarmsXLSX(data Data) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", alarmsSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("creating summary sheet: %w", err)
	}
	if _, err := f.NewSheet(eventsSheet); err != nil {
		return nil, fmt.Errorf("creating events sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	for i, name := range alarmColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(alarmsSheet, cell, name)
	}
	_ = f.SetRowStyle(alarmsSheet, 1, 1, header)

	for i, a := range data.Alarms {
		row := []any{
			a.Tag.String(), a.Description, a.Priority.String(), a.Setpoint, a.Deadband, a.ClearLimit(),
			a.State.String(), a.Enabled, a.Shelved, a.Suppressed, a.OccurrenceCount,
			formatTime(a.TriggeredAt), formatTime(a.LastAcknowledgedAt),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(alarmsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("writing alarm %s: %w", a.Tag, err)
		}
	}

	_ = f.SetCellValue(summarySheet, "A1", "Alarm Summary")
	_ = f.SetCellValue(summarySheet, "A2", "Generated")
	_ = f.SetCellValue(summarySheet, "B2", data.GeneratedAt.UTC().Format(timeFormat))
	_ = f.SetCellValue(summarySheet, "A3", "Total Active")
	_ = f.SetCellValue(summarySheet, "B3", data.Summary.TotalActive)
	_ = f.SetCellValue(summarySheet, "A4", "Capacity")
	_ = f.SetCellValue(summarySheet, "B4", data.Summary.Capacity)
	for i, p := range entity.AllPriorities() {
		row := i + 5
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), p.String())
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), data.Summary.Count(p))
	}
	_ = f.SetCellStyle(summarySheet, "A1", "A1", header)

	_ = f.SetCellValue(eventsSheet, "A1", "Event Type")
	_ = f.SetCellValue(eventsSheet, "B1", "Count")
	_ = f.SetRowStyle(eventsSheet, 1, 1, header)
	for i, t := range entity.AllEventTypes() {
		row := i + 2
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("A%d", row), string(t))
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("B%d", row), data.EventCounts[t])
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildSummaryPDF renders the aggregates and the active alarm list.
// Alarms that are not active are skipped.
func BuildSummaryPDF(data Data) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Alarm Summary", false)
	pdf.SetCreator("alarm-engine", false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "ALARM SUMMARY")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s UTC", data.GeneratedAt.UTC().Format(timeFormat)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Active Alarms: %d / %d", data.Summary.TotalActive, data.Summary.Capacity))
	pdf.Ln(5)
	for _, p := range entity.AllPriorities() {
		pdf.Cell(0, 6, fmt.Sprintf("%s: %d", p, data.Summary.Count(p)))
		pdf.Ln(5)
	}
	if data.Summary.CapacityExceeded() {
		pdf.SetTextColor(200, 0, 0)
		pdf.Cell(0, 6, "Alarm capacity exceeded")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 6, "Active Alarms")
	pdf.Ln(8)

	widths := []float64{22, 68, 24, 50, 26}
	headers := []string{"Tag", "Description", "Priority", "State", "Occurrences"}
	pdf.SetFont("Arial", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	active := 0
	for _, a := range data.Alarms {
		if !a.IsActive() {
			continue
		}
		active++
		pdf.CellFormat(widths[0], 6, a.Tag.String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, truncate(a.Description, 38), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, a.Priority.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 6, a.State.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[4], 6, fmt.Sprintf("%d", a.OccurrenceCount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	if active == 0 {
		pdf.CellFormat(sum(widths), 6, "No active alarms", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeFormat)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max-3]) + "..."
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
