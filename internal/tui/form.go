package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ankityadav/upwatch/internal/config"
	"github.com/ankityadav/upwatch/internal/storage"
)

type formModel struct {
	db         Store
	engine     Engine
	target     *storage.Target
	inputs     []textinput.Model
	focusIndex int
	isEdit     bool
	err        error
}

const (
	inputName = iota
	inputURL
	inputMethod
	inputInterval
	inputTimeout
	inputAlertType
	inputKeyword
	inputStatusCodes
	inputHeaders
	inputBody
	inputOptions
	inputTLSThreshold
	inputCount
)

var formLabels = [inputCount]string{
	"Name:",
	"URL:",
	"Method:",
	"Check Interval (seconds, min 30):",
	"Timeout (seconds):",
	"Alert Type:",
	"Alert Keyword:",
	"Allowed Status Codes:",
	"Headers (JSON object):",
	"Body ({timestamp} is replaced):",
	"Options (redirects,cookies,tls,dns):",
	"TLS Expiry Warning (days):",
}

func newFormModel(db Store, engine Engine) formModel {
	inputs := make([]textinput.Model, inputCount)

	fields := []struct {
		placeholder string
		limit       int
		width       int
	}{
		inputName:         {"My Website", 100, 50},
		inputURL:          {"https://example.com", 500, 50},
		inputMethod:       {"GET", 7, 20},
		inputInterval:     {"60", 5, 20},
		inputTimeout:      {"10", 3, 20},
		inputAlertType:    {"unavailable | contains_keyword | not_contains_keyword | http_status_other_than", 30, 50},
		inputKeyword:      {"optional", 200, 50},
		inputStatusCodes:  {"200,201 (http_status_other_than only)", 50, 50},
		inputHeaders:      {`{"Authorization":"Bearer ..."}`, 1000, 50},
		inputBody:         {"optional", 2000, 50},
		inputOptions:      {"redirects,tls", 40, 50},
		inputTLSThreshold: {"30", 3, 20},
	}

	for i, s := range fields {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = s.placeholder
		inputs[i].CharLimit = s.limit
		inputs[i].Width = s.width
	}
	inputs[inputName].Focus()

	return formModel{
		db:     db,
		engine: engine,
		inputs: inputs,
	}
}

func (m *formModel) reset() {
	m.target = nil
	m.isEdit = false
	m.focusIndex = 0
	m.err = nil

	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.inputs[inputMethod].SetValue("GET")
	m.inputs[inputInterval].SetValue(strconv.Itoa(config.DefaultCheckInterval))
	m.inputs[inputTimeout].SetValue(strconv.Itoa(config.DefaultTimeout))
	m.inputs[inputAlertType].SetValue(string(storage.AlertUnavailable))
	m.inputs[inputTLSThreshold].SetValue(strconv.Itoa(config.DefaultTLSExpiryThreshold))

	m.updateFocus()
}

func (m *formModel) setTarget(t *storage.Target) {
	m.target = t
	m.isEdit = true
	m.focusIndex = 0
	m.err = nil

	m.inputs[inputName].SetValue(t.Name)
	m.inputs[inputURL].SetValue(t.URL)
	m.inputs[inputMethod].SetValue(t.Method)
	m.inputs[inputInterval].SetValue(strconv.Itoa(t.CheckInterval))
	m.inputs[inputTimeout].SetValue(strconv.Itoa(t.Timeout))
	m.inputs[inputAlertType].SetValue(string(t.Policy()))
	m.inputs[inputKeyword].SetValue(t.AlertKeyword)
	m.inputs[inputStatusCodes].SetValue(t.AlertStatusCodes)
	m.inputs[inputHeaders].SetValue(t.Headers)
	m.inputs[inputBody].SetValue(t.Body)
	m.inputs[inputOptions].SetValue(formatOptions(t))
	m.inputs[inputTLSThreshold].SetValue(strconv.Itoa(t.TLSExpiryThreshold))

	m.updateFocus()
}

func (m formModel) Update(msg tea.Msg) (formModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, emit(BackToListMsg{})

		case "tab", "down":
			m.focusIndex = (m.focusIndex + 1) % len(m.inputs)
			return m, m.updateFocus()

		case "shift+tab", "up":
			m.focusIndex--
			if m.focusIndex < 0 {
				m.focusIndex = len(m.inputs) - 1
			}
			return m, m.updateFocus()

		case "ctrl+s":
			cmd := m.save()
			return m, cmd

		case "enter":
			if m.focusIndex == len(m.inputs)-1 {
				cmd := m.save()
				return m, cmd
			}
			m.focusIndex++
			return m, m.updateFocus()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *formModel) updateFocus() tea.Cmd {
	cmds := make([]tea.Cmd, len(m.inputs))

	for i := 0; i < len(m.inputs); i++ {
		if i == m.focusIndex {
			cmds[i] = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}

	return tea.Batch(cmds...)
}

func (m *formModel) value(i int) string {
	return strings.TrimSpace(m.inputs[i].Value())
}

// apply copies the form values onto t.
func (m *formModel) apply(t *storage.Target) error {
	t.Name = m.value(inputName)
	t.URL = m.value(inputURL)
	t.Method = strings.ToUpper(m.value(inputMethod))
	if t.Method == "" {
		t.Method = "GET"
	}

	var err error
	if t.CheckInterval, err = atoiOr(m.value(inputInterval), config.DefaultCheckInterval); err != nil {
		return fmt.Errorf("check interval: %w", err)
	}
	if t.Timeout, err = atoiOr(m.value(inputTimeout), config.DefaultTimeout); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	if t.TLSExpiryThreshold, err = atoiOr(m.value(inputTLSThreshold), config.DefaultTLSExpiryThreshold); err != nil {
		return fmt.Errorf("tls expiry warning: %w", err)
	}

	t.AlertType = storage.AlertType(m.value(inputAlertType))
	t.AlertKeyword = m.inputs[inputKeyword].Value()
	t.AlertStatusCodes = m.value(inputStatusCodes)
	t.Headers = m.value(inputHeaders)
	t.Body = m.inputs[inputBody].Value()

	return parseOptions(m.value(inputOptions), t)
}

func (m *formModel) save() tea.Cmd {
	t := &storage.Target{Enabled: true}
	if m.isEdit && m.target != nil {
		cp := *m.target
		t = &cp
	}

	if err := m.apply(t); err != nil {
		m.err = err
		return nil
	}

	if m.isEdit {
		if err := m.db.UpdateTarget(t); err != nil {
			m.err = err
			return nil
		}
	} else if err := m.db.CreateTarget(t); err != nil {
		m.err = err
		return nil
	}

	if m.engine != nil {
		if err := m.engine.ScheduleTarget(t); err != nil {
			m.err = err
			return nil
		}
	}

	return emit(TargetSavedMsg{})
}

func atoiOr(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func parseOptions(raw string, t *storage.Target) error {
	t.FollowRedirects, t.AcceptCookies, t.CheckTLS, t.CheckDNS = false, false, false, false
	for _, opt := range strings.Split(raw, ",") {
		switch strings.ToLower(strings.TrimSpace(opt)) {
		case "":
		case "redirects":
			t.FollowRedirects = true
		case "cookies":
			t.AcceptCookies = true
		case "tls":
			t.CheckTLS = true
		case "dns":
			t.CheckDNS = true
		default:
			return fmt.Errorf("unknown option %q", opt)
		}
	}
	return nil
}

func formatOptions(t *storage.Target) string {
	var opts []string
	if t.FollowRedirects {
		opts = append(opts, "redirects")
	}
	if t.AcceptCookies {
		opts = append(opts, "cookies")
	}
	if t.CheckTLS {
		opts = append(opts, "tls")
	}
	if t.CheckDNS {
		opts = append(opts, "dns")
	}
	return strings.Join(opts, ",")
}

func (m formModel) View() string {
	var b strings.Builder

	title := "Add Target"
	if m.isEdit {
		title = "Edit Target"
	}

	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	for i, input := range m.inputs {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(formLabels[i]))
		b.WriteString("\n")
		b.WriteString(input.View())
		b.WriteString("\n\n")
	}

	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		b.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("tab: next • shift+tab: previous • ctrl+s: save • esc: cancel"))

	return baseStyle.Render(b.String())
}
