package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ankityadav/upwatch/internal/storage"
)

var (
	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	statusUpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	statusDegradedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")).
				Bold(true)

	statusDownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	statusUnknownStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
)

type listModel struct {
	db        Store
	engine    Engine
	table     table.Model
	targets   []storage.Target
	onCall    *storage.OnCallSchedule
	lastCheck CheckDoneMsg
	err       error
}

func newListModel(db Store, engine Engine) listModel {
	columns := []table.Column{
		{Title: "ID", Width: 4},
		{Title: "Name", Width: 20},
		{Title: "URL", Width: 40},
		{Title: "Status", Width: 14},
		{Title: "Last Check", Width: 20},
		{Title: "Enabled", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	lm := listModel{
		db:     db,
		engine: engine,
		table:  t,
	}
	lm.loadTargets()
	return lm
}

func (m *listModel) Init() tea.Cmd {
	return nil
}

func (m *listModel) loadTargets() {
	targets, err := m.db.ListTargets()
	if err != nil {
		m.err = err
		return
	}
	m.targets = targets

	rows := []table.Row{}
	for _, t := range targets {
		lastCheck := "Never"
		if t.LastCheckAt != nil {
			lastCheck = formatTime(*t.LastCheckAt)
		}
		enabled := "No"
		if t.Enabled {
			enabled = "Yes"
		}

		rows = append(rows, table.Row{
			fmt.Sprintf("%d", t.ID),
			t.Name,
			t.URL,
			statusLabel(t.CurrentStatus),
			lastCheck,
			enabled,
		})
	}
	m.table.SetRows(rows)

	if m.engine != nil {
		if s, err := m.engine.ResolveOnCall(time.Now()); err == nil {
			m.onCall = s
		}
	}
}

func (m *listModel) selected() *storage.Target {
	if len(m.targets) == 0 || m.table.Cursor() >= len(m.targets) {
		return nil
	}
	return &m.targets[m.table.Cursor()]
}

func (m listModel) Update(msg tea.Msg) (listModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "a":
			return m, emit(AddTargetMsg{})
		case "e":
			if t := m.selected(); t != nil {
				return m, emit(EditTargetMsg{Target: t})
			}
		case "d":
			if t := m.selected(); t != nil {
				if err := m.db.DeleteTarget(t.ID); err != nil {
					m.err = err
					return m, nil
				}
				if m.engine != nil {
					m.engine.UnscheduleTarget(t.ID)
				}
				m.loadTargets()
				return m, nil
			}
		case "t":
			if t := m.selected(); t != nil {
				m.err = m.toggle(t)
				m.loadTargets()
				return m, nil
			}
		case "c":
			if t := m.selected(); t != nil {
				m.lastCheck = CheckDoneMsg{Name: t.Name}
				return m, checkNow(m.engine, *t)
			}
		case "enter":
			if t := m.selected(); t != nil {
				return m, emit(TargetSelectedMsg{Target: t})
			}
		case "r":
			m.loadTargets()
			return m, nil
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *listModel) toggle(t *storage.Target) error {
	if err := m.db.ToggleTarget(t.ID, !t.Enabled); err != nil {
		return err
	}
	if m.engine == nil {
		return nil
	}
	fresh, err := m.db.GetTarget(t.ID)
	if err != nil {
		return err
	}
	return m.engine.ScheduleTarget(fresh)
}

func (m listModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("📊 upwatch - Uptime Monitor"))
	b.WriteString("\n")
	b.WriteString(onCallBanner(m.onCall))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	if line := m.statusLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n\n")
	}

	help := "a: add • e: edit • d: delete • t: toggle • enter: details • r: refresh • q: quit"
	if m.engine != nil {
		help = "a: add • e: edit • d: delete • t: toggle • c: check now • enter: details • r: refresh • q: quit"
	}
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m listModel) statusLine() string {
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	switch {
	case m.err != nil:
		return errStyle.Render(fmt.Sprintf("Error: %v", m.err))
	case m.lastCheck.Name == "":
		return ""
	case m.lastCheck.Err != nil:
		return errStyle.Render(fmt.Sprintf("Check of %s failed: %v", m.lastCheck.Name, m.lastCheck.Err))
	case m.lastCheck.Result.CreatedAt.IsZero():
		return statusUnknownStyle.Render(fmt.Sprintf("Checking %s...", m.lastCheck.Name))
	default:
		r := m.lastCheck.Result
		line := fmt.Sprintf("%s: %s in %dms", m.lastCheck.Name, statusLabel(r.Status), r.ResponseTime)
		if r.Error != "" {
			line += " (" + r.Error + ")"
		}
		return line
	}
}

func onCallBanner(s *storage.OnCallSchedule) string {
	if s == nil {
		return statusUnknownStyle.Render("Nobody on call")
	}
	label := fmt.Sprintf("On call: %s <%s>", s.Contact.Name, s.Contact.Email)
	if s.Label != "" {
		label += " • " + s.Label
	}
	return bannerStyle.Render(label)
}

func statusLabel(status storage.Status) string {
	switch status {
	case storage.StatusOperational:
		return "✓ OPERATIONAL"
	case storage.StatusDegraded:
		return "! DEGRADED"
	case storage.StatusDown:
		return "✗ DOWN"
	default:
		return "? UNKNOWN"
	}
}

func formatTime(t time.Time) string {
	return t.Local().Format("Jan 02 15:04:05")
}
