package presenter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
)

var (
	colorRed    = lipgloss.Color("#FF5555")
	colorOrange = lipgloss.Color("#FFB86C")
	colorYellow = lipgloss.Color("#F1FA8C")
	colorGreen  = lipgloss.Color("#50FA7B")
	colorCyan   = lipgloss.Color("#8BE9FD")
	colorWhite  = lipgloss.Color("#F8F8F2")
	colorGray   = lipgloss.Color("#6272A4")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle  = lipgloss.NewStyle().Foreground(colorGray)
	valueStyle  = lipgloss.NewStyle().Foreground(colorWhite)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	okStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	dimStyle    = lipgloss.NewStyle().Foreground(colorGray)
	warnStyle   = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	critStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
)

// PriorityStyle returns the colour used for a priority.
func PriorityStyle(p entity.Priority) lipgloss.Style {
	switch p {
	case entity.PriorityCritical:
		return critStyle
	case entity.PriorityHigh:
		return lipgloss.NewStyle().Foreground(colorOrange).Bold(true)
	case entity.PriorityMedium:
		return warnStyle
	default:
		return valueStyle
	}
}

// StateStyle returns the colour used for a lifecycle state.
func StateStyle(s entity.State) lipgloss.Style {
	switch s {
	case entity.StateUnacknowledged, entity.StateReturnedUnacknowledged:
		return critStyle
	case entity.StateAcknowledged:
		return warnStyle
	case entity.StateNormal:
		return okStyle
	default:
		return dimStyle
	}
}

// Terminal renders registry views for a colour terminal.
type Terminal struct {
	width int
}

// NewTerminal creates a renderer. width <= 0 leaves panels unsized.
func NewTerminal(width int) *Terminal {
	return &Terminal{width: width}
}

// Summary renders the aggregates and the active list inside a panel.
func (t *Terminal) Summary(summary entity.AlarmSummary, active []entity.AlarmSnapshot) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ALARM SUMMARY"))
	b.WriteString("\n")

	total := fmt.Sprintf("%d / %d", summary.TotalActive, summary.Capacity)
	totalStyle := valueStyle
	if summary.CapacityExceeded() {
		totalStyle = critStyle
	}
	b.WriteString(labelStyle.Render("Active  ") + totalStyle.Render(total) + "\n")

	counts := make([]string, 0, 4)
	for _, p := range entity.AllPriorities() {
		counts = append(counts, PriorityStyle(p).Render(fmt.Sprintf("%s %d", p, summary.Count(p))))
	}
	b.WriteString(strings.Join(counts, dimStyle.Render("  ·  ")))
	b.WriteString("\n\n")

	if len(active) == 0 {
		b.WriteString(okStyle.Render("No active alarms"))
	} else {
		rows := make([]string, 0, len(active))
		for _, a := range active {
			rows = append(rows, fmt.Sprintf("%s  %s  %s",
				valueStyle.Render(padRight(a.Tag.String(), 8)),
				PriorityStyle(a.Priority).Render(padRight(a.Priority.String(), 9)),
				StateStyle(a.State).Render(a.State.String()),
			))
		}
		b.WriteString(strings.Join(rows, "\n"))
	}

	return t.panel().Render(b.String())
}

// AlarmTable renders every alarm as one row.
func (t *Terminal) AlarmTable(alarms []entity.AlarmSnapshot, selected int) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-8s %-28s %-9s %-24s %9s %5s",
		"TAG", "DESCRIPTION", "PRIORITY", "STATE", "SETPOINT", "OCC")))
	b.WriteString("\n")

	for i, a := range alarms {
		line := fmt.Sprintf("%-8s %-28s %s %s %9g %5d",
			a.Tag,
			truncateText(a.Description, 28),
			PriorityStyle(a.Priority).Render(padRight(a.Priority.String(), 9)),
			StateStyle(a.State).Render(padRight(a.State.String(), 24)),
			a.Setpoint,
			a.OccurrenceCount,
		)
		if i == selected {
			line = lipgloss.NewStyle().Reverse(true).Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// Event renders one event as a single log-style line.
func (t *Terminal) Event(e *entity.AlarmEvent) string {
	at := dimStyle.Render(e.OccurredAt.Format("15:04:05"))
	if e.IsRegistryEvent() {
		return fmt.Sprintf("%s %s %s", at, critStyle.Render("[CAPACITY EXCEEDED]"),
			fmt.Sprintf("%d active (max %d)", e.TotalActive, e.Capacity))
	}

	label := "[" + strings.ToUpper(strings.TrimPrefix(string(e.Type), "Alarm")) + "]"
	line := fmt.Sprintf("%s %s %s %s → %s",
		at,
		PriorityStyle(e.Priority).Render(label),
		valueStyle.Render(e.Tag.String()),
		dimStyle.Render(e.PreviousState.String()),
		StateStyle(e.CurrentState).Render(e.CurrentState.String()),
	)
	if e.Value != nil {
		line += labelStyle.Render(fmt.Sprintf(" (value %g)", *e.Value))
	}
	if e.Operator != "" {
		line += labelStyle.Render(" by " + e.Operator)
	}
	return line
}

// Title renders a heading line.
func (t *Terminal) Title(text string) string {
	return titleStyle.Render(text)
}

// Step renders a scripted input such as a process value or command.
func (t *Terminal) Step(text string) string {
	return dimStyle.Render("▸ ") + valueStyle.Render(text)
}

// Error renders an error line.
func (t *Terminal) Error(err error) string {
	return critStyle.Render("✗ " + err.Error())
}

func (t *Terminal) panel() lipgloss.Style {
	if t.width > 0 {
		return panelStyle.Width(t.width - 2)
	}
	return panelStyle
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
