package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ankityadav/upwatch/internal/downtime"
	"github.com/ankityadav/upwatch/internal/storage"
)

// Store is the data the UI reads and edits. *storage.Database satisfies it.
type Store interface {
	GetTarget(id uint) (*storage.Target, error)
	ListTargets() ([]storage.Target, error)
	CreateTarget(t *storage.Target) error
	UpdateTarget(t *storage.Target) error
	DeleteTarget(id uint) error
	ToggleTarget(id uint, enabled bool) error
	GetRecentCheckResults(targetID uint, limit int) ([]storage.CheckResult, error)
	GetCheckResultStats(targetID uint, since time.Time) (total, successful int64, avgResponseTime float64, err error)
	ListIncidents(targetID uint, limit int) ([]storage.Incident, error)
}

// Engine is the part of the checker the UI drives. *checker.Engine satisfies
// it; a nil Engine gives a read-only UI.
type Engine interface {
	ScheduleTarget(t *storage.Target) error
	UnscheduleTarget(id uint)
	CheckNow(ctx context.Context, t *storage.Target) (storage.CheckResult, error)
	ResolveOnCall(now time.Time) (*storage.OnCallSchedule, error)
	AggregateDowntime(targetID uint) (downtime.Log, error)
}

const checkNowTimeout = 2 * time.Minute

type sessionState int

const (
	listView sessionState = iota
	addView
	editView
	detailView
)

type Model struct {
	db     Store
	engine Engine
	state  sessionState
	list   listModel
	form   formModel
	detail detailModel
	width  int
	height int
}

type tickMsg time.Time

func New(db Store, engine Engine) Model {
	return Model{
		db:     db,
		engine: engine,
		state:  listView,
		list:   newListModel(db, engine),
		form:   newFormModel(db, engine),
		detail: newDetailModel(db, engine),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.list.Init(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second*2, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.state == listView {
				return m, tea.Quit
			}
			if m.state == detailView {
				return m.show(listView), nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.state == listView {
			m.list.loadTargets()
		} else if m.state == detailView {
			m.detail.refresh()
		}
		return m, tickCmd()

	case TargetSelectedMsg:
		m.detail.setTarget(msg.Target)
		return m.show(detailView), nil

	case AddTargetMsg:
		m.form.reset()
		return m.show(addView), nil

	case EditTargetMsg:
		m.form.setTarget(msg.Target)
		return m.show(editView), nil

	case TargetSavedMsg, BackToListMsg:
		return m.show(listView), nil

	case CheckDoneMsg:
		m.list.lastCheck = msg
		m.list.loadTargets()
		if m.state == detailView {
			m.detail.refresh()
		}
		return m, nil
	}

	switch m.state {
	case listView:
		listModel, listCmd := m.list.Update(msg)
		m.list = listModel
		cmds = append(cmds, listCmd)

	case addView, editView:
		formModel, formCmd := m.form.Update(msg)
		m.form = formModel
		cmds = append(cmds, formCmd)

	case detailView:
		detailModel, detailCmd := m.detail.Update(msg)
		m.detail = detailModel
		cmds = append(cmds, detailCmd)
	}

	return m, tea.Batch(cmds...)
}

// show switches to state, reloading the list when returning to it.
func (m Model) show(state sessionState) Model {
	m.state = state
	if state == listView {
		m.list.loadTargets()
	}
	return m
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	switch m.state {
	case listView:
		return m.list.View()
	case addView, editView:
		return m.form.View()
	case detailView:
		return m.detail.View()
	default:
		return "Unknown state"
	}
}

type TargetSelectedMsg struct {
	Target *storage.Target
}

type AddTargetMsg struct{}

type EditTargetMsg struct {
	Target *storage.Target
}

type TargetSavedMsg struct{}

type BackToListMsg struct{}

// CheckDoneMsg carries the outcome of a manual check.
type CheckDoneMsg struct {
	Name   string
	Result storage.CheckResult
	Err    error
}

// emit wraps a message as a command.
func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// checkNow runs a manual check off the UI goroutine.
func checkNow(engine Engine, t storage.Target) tea.Cmd {
	if engine == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), checkNowTimeout)
		defer cancel()
		result, err := engine.CheckNow(ctx, &t)
		return CheckDoneMsg{Name: t.Name, Result: result, Err: err}
	}
}
