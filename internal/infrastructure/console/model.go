package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/dto"
	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/presenter"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
	"github.com/qj0r9j0vc2/alarm-engine/internal/usecase/alarm"
)

// DefaultInterval is the refresh period used when none is given.
const DefaultInterval = 2 * time.Second

// API is the part of the server API the console needs.
type API interface {
	Summary(ctx context.Context) (entity.AlarmSummary, []entity.AlarmSnapshot, error)
	Alarms(ctx context.Context) ([]entity.AlarmSnapshot, error)
	Command(ctx context.Context, tag entity.Tag, action string) (*dto.CommandResponse, error)
}

// keyActions maps single keys to operator actions.
var keyActions = map[string]string{
	"a": alarm.ActionAcknowledge,
	"s": alarm.ActionShelve,
	"u": alarm.ActionUnshelve,
	"p": alarm.ActionSuppress,
	"P": alarm.ActionUnsuppress,
	"e": alarm.ActionEnable,
	"d": alarm.ActionDisable,
}

type tickMsg time.Time

type refreshMsg struct {
	summary entity.AlarmSummary
	active  []entity.AlarmSnapshot
	alarms  []entity.AlarmSnapshot
	err     error
}

type commandMsg struct {
	tag    entity.Tag
	action string
	resp   *dto.CommandResponse
	err    error
}

// Model is the bubbletea model of the operator console.
type Model struct {
	api      API
	interval time.Duration
	server   string
	term     *presenter.Terminal

	summary  entity.AlarmSummary
	active   []entity.AlarmSnapshot
	alarms   []entity.AlarmSnapshot
	selected int
	loaded   bool

	status     string
	statusErr  bool
	lastUpdate time.Time

	width  int
	height int
}

// NewModel creates a console for api. server is only shown in the header.
func NewModel(api API, server string, interval time.Duration) Model {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return Model{
		api:      api,
		interval: interval,
		server:   server,
		term:     presenter.NewTerminal(0),
	}
}

// Run starts the console on the alternate screen and blocks until the user quits.
func Run(api API, server string, interval time.Duration) error {
	p := tea.NewProgram(NewModel(api, server, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(m.interval), refresh(m.api, m.interval))
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func refresh(api API, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		summary, active, err := api.Summary(ctx)
		if err != nil {
			return refreshMsg{err: err}
		}
		alarms, err := api.Alarms(ctx)
		if err != nil {
			return refreshMsg{err: err}
		}
		return refreshMsg{summary: summary, active: active, alarms: alarms}
	}
}

func sendCommand(api API, tag entity.Tag, action string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		resp, err := api.Command(ctx, tag, action)
		return commandMsg{tag: tag, action: action, resp: resp, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "j":
			if m.selected < len(m.alarms)-1 {
				m.selected++
			}
			return m, nil
		case "r":
			return m, refresh(m.api, m.interval)
		}
		if action, ok := keyActions[key]; ok {
			a, ok := m.selectedAlarm()
			if !ok {
				return m, nil
			}
			return m, sendCommand(m.api, a.Tag, action, m.interval)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.term = presenter.NewTerminal(msg.Width)

	case tickMsg:
		return m, tea.Batch(tick(m.interval), refresh(m.api, m.interval))

	case refreshMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("refresh failed: %v", msg.err), true)
			return m, nil
		}
		m.summary = msg.summary
		m.active = msg.active
		m.alarms = msg.alarms
		m.loaded = true
		m.lastUpdate = time.Now()
		if m.selected >= len(m.alarms) {
			m.selected = max(len(m.alarms)-1, 0)
		}

	case commandMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("%s %s failed: %v", msg.action, msg.tag, msg.err), true)
			return m, nil
		}
		if msg.resp.Changed {
			m.setStatus(fmt.Sprintf("%s %s: %s → %s", msg.action, msg.tag, msg.resp.PreviousState, msg.resp.CurrentState), false)
		} else {
			m.setStatus(fmt.Sprintf("%s %s: no change (%s)", msg.action, msg.tag, msg.resp.CurrentState), false)
		}
		return m, refresh(m.api, m.interval)
	}
	return m, nil
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m Model) selectedAlarm() (entity.AlarmSnapshot, bool) {
	if m.selected < 0 || m.selected >= len(m.alarms) {
		return entity.AlarmSnapshot{}, false
	}
	return m.alarms[m.selected], true
}

func (m Model) View() string {
	var b strings.Builder

	header := headerStyle.Render("ALARM CONSOLE") + "  " + dimStyle.Render(m.server)
	if !m.lastUpdate.IsZero() {
		header += "  " + dimStyle.Render("updated "+m.lastUpdate.Format("15:04:05"))
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	if !m.loaded {
		if m.status != "" {
			b.WriteString(m.renderStatus())
		} else {
			b.WriteString(dimStyle.Render("connecting…"))
		}
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.term.Summary(m.summary, m.active))
	b.WriteString("\n\n")
	b.WriteString(m.term.AlarmTable(m.alarms, m.selected))
	b.WriteString("\n\n")

	if m.status != "" {
		b.WriteString(m.renderStatus())
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("↑/↓ select  a ack  s shelve  u unshelve  p suppress  P unsuppress  e enable  d disable  r refresh  q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderStatus() string {
	if m.statusErr {
		return errorStyle.Render(m.status)
	}
	return okStyle.Render(m.status)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BE9FD"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true)
)
