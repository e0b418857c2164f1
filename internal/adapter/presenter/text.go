package presenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
)

// TextFormatter renders the operator's plain text summary and detail listings.
type TextFormatter struct{}

// NewTextFormatter creates a new TextFormatter.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// FormatSummary renders the active-alarm aggregates followed by the active list.
func (f *TextFormatter) FormatSummary(summary entity.AlarmSummary, active []entity.AlarmSnapshot) string {
	var b strings.Builder

	b.WriteString("=== ALARM SUMMARY ===\n")
	fmt.Fprintf(&b, "Total Active Alarms: %d (Max: %d)\n", summary.TotalActive, summary.Capacity)
	b.WriteString("By Priority:\n")
	for _, p := range entity.AllPriorities() {
		fmt.Fprintf(&b, "  %-10s%d\n", p.String()+":", summary.Count(p))
	}

	b.WriteString("\nActive Alarms:\n")
	for _, a := range active {
		if !a.IsActive() {
			continue
		}
		fmt.Fprintf(&b, "  %s (%s) - %s\n", a.Tag, a.Priority, a.State)
	}
	b.WriteString("=====================\n")

	return b.String()
}

// FormatAlarms renders every field of every alarm, one block per alarm.
func (f *TextFormatter) FormatAlarms(alarms []entity.AlarmSnapshot) string {
	var b strings.Builder

	b.WriteString("=== ALL CONFIGURED ALARMS ===\n")
	for _, a := range alarms {
		f.writeAlarm(&b, a)
		b.WriteString("--------------------------\n")
	}
	b.WriteString("============================\n")

	return b.String()
}

// FormatAlarm renders a single alarm block.
func (f *TextFormatter) FormatAlarm(a entity.AlarmSnapshot) string {
	var b strings.Builder
	f.writeAlarm(&b, a)
	return b.String()
}

func (f *TextFormatter) writeAlarm(b *strings.Builder, a entity.AlarmSnapshot) {
	fmt.Fprintf(b, "Alarm: %s (%s)\n", a.Tag, a.Description)
	fmt.Fprintf(b, "  Priority: %s\n", a.Priority)
	fmt.Fprintf(b, "  State: %s\n", a.State)
	fmt.Fprintf(b, "  Setpoint: %g (Deadband: %g)\n", a.Setpoint, a.Deadband)
	if a.TriggeredAt != nil {
		fmt.Fprintf(b, "  Triggered: %s\n", a.TriggeredAt.Format(time.RFC3339))
	}
	if a.LastAcknowledgedAt != nil {
		fmt.Fprintf(b, "  Last Acknowledged: %s\n", a.LastAcknowledgedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(b, "  Occurrence Count: %d\n", a.OccurrenceCount)
	fmt.Fprintf(b, "  Enabled: %s\n", yesNo(a.Enabled))
	fmt.Fprintf(b, "  Suppressed: %s\n", yesNo(a.Suppressed))
	fmt.Fprintf(b, "  Shelved: %s\n", yesNo(a.Shelved))
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
