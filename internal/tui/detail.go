package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ankityadav/upwatch/internal/config"
	"github.com/ankityadav/upwatch/internal/downtime"
	"github.com/ankityadav/upwatch/internal/storage"
)

type detailModel struct {
	db           Store
	engine       Engine
	target       *storage.Target
	checkResults []storage.CheckResult
	incidents    []storage.Incident
	log          downtime.Log
}

func newDetailModel(db Store, engine Engine) detailModel {
	return detailModel{
		db:     db,
		engine: engine,
	}
}

func (m *detailModel) setTarget(t *storage.Target) {
	m.target = t
	m.refresh()
}

func (m *detailModel) refresh() {
	if m.target == nil {
		return
	}

	t, err := m.db.GetTarget(m.target.ID)
	if err == nil {
		m.target = t
	}

	results, err := m.db.GetRecentCheckResults(m.target.ID, 10)
	if err == nil {
		m.checkResults = results
	}

	m.log = m.downtimeLog()

	incidents, err := m.db.ListIncidents(m.target.ID, 5)
	if err == nil {
		m.incidents = incidents
	}
}

func (m *detailModel) downtimeLog() downtime.Log {
	if m.engine != nil {
		if log, err := m.engine.AggregateDowntime(m.target.ID); err == nil {
			return log
		}
	}
	incidents, err := m.db.ListIncidents(m.target.ID, config.DefaultIncidentLookback)
	if err != nil {
		return downtime.Log{}
	}
	return downtime.Aggregate(incidents, m.target.CreatedAt, time.Now())
}

func (m detailModel) Update(msg tea.Msg) (detailModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, emit(BackToListMsg{})
		case "e":
			return m, emit(EditTargetMsg{Target: m.target})
		case "c":
			if m.target != nil {
				return m, checkNow(m.engine, *m.target)
			}
		}
	}
	return m, nil
}

func (m detailModel) View() string {
	if m.target == nil {
		return "No target selected"
	}
	t := m.target

	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Target Details: %s", t.Name)))
	b.WriteString("\n\n")

	infoStyle := lipgloss.NewStyle().Bold(true)
	field := func(label, value string) {
		b.WriteString(infoStyle.Render(label + ": "))
		b.WriteString(value)
		b.WriteString("\n")
	}

	field("URL", fmt.Sprintf("%s %s", t.Method, t.URL))
	field("Status", formatStatus(t.CurrentStatus))
	field("Check Interval", fmt.Sprintf("%d seconds", t.CheckInterval))
	field("Timeout", fmt.Sprintf("%d seconds", t.Timeout))
	field("Alert", describePolicy(t))
	if t.CheckTLS {
		field("TLS", fmt.Sprintf("checked, warn %d days before expiry", t.TLSExpiryThreshold))
	}
	if t.CheckDNS {
		field("DNS", "checked")
	}
	field("Enabled", yesNo(t.Enabled))
	if t.LastCheckAt != nil {
		field("Last Check", t.LastCheckAt.Local().Format("2006-01-02 15:04:05"))
	}
	if t.LastStatusChangeAt != nil {
		field("Status Since", t.LastStatusChangeAt.Local().Format("2006-01-02 15:04:05"))
	}

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Downtime"))
	b.WriteString("\n")
	b.WriteString(renderDowntime(m.log))

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Checks (Last 24h)"))
	b.WriteString("\n")

	since := time.Now().Add(-24 * time.Hour)
	total, successful, avgResponseTime, err := m.db.GetCheckResultStats(t.ID, since)
	if err == nil && total > 0 {
		ratio := float64(successful) / float64(total) * 100
		b.WriteString(fmt.Sprintf("Not down: %.2f%% (%d/%d checks)\n", ratio, successful, total))
		b.WriteString(fmt.Sprintf("Avg Response Time: %.0fms\n", avgResponseTime))
	} else {
		b.WriteString("No data available\n")
	}

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Recent Checks"))
	b.WriteString("\n")

	if len(m.checkResults) > 0 {
		for _, cr := range m.checkResults {
			b.WriteString(renderCheck(cr))
			b.WriteString("\n")
		}
	} else {
		b.WriteString("No check results yet\n")
	}

	if len(m.incidents) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Recent Incidents"))
		b.WriteString("\n")

		for _, inc := range m.incidents {
			b.WriteString(fmt.Sprintf("Started: %s\n", inc.StartedAt.Local().Format("2006-01-02 15:04:05")))
			if inc.ResolvedAt != nil {
				b.WriteString(fmt.Sprintf("Resolved: %s (Duration: %s)\n",
					inc.ResolvedAt.Local().Format("2006-01-02 15:04:05"),
					formatDuration(inc.Duration(time.Now()))))
			} else {
				b.WriteString(fmt.Sprintf("Status: ONGOING (Duration: %s)\n", formatDuration(inc.Duration(time.Now()))))
			}
			b.WriteString(fmt.Sprintf("Error: %s\n\n", inc.ErrorMessage))
		}
	}

	help := "e: edit • esc/q: back to list"
	if m.engine != nil {
		help = "c: check now • e: edit • esc/q: back to list"
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func renderDowntime(log downtime.Log) string {
	var b strings.Builder

	uptime := fmt.Sprintf("%.3f%%", log.UptimePercent)
	if log.UptimePercent >= 99 {
		uptime = statusUpStyle.Render(uptime)
	} else {
		uptime = statusDownStyle.Render(uptime)
	}
	b.WriteString(fmt.Sprintf("Uptime: %s • Incidents: %d (%d resolved)\n", uptime, log.TotalIncidents, log.ResolvedIncidents))

	if log.OpenIncident != nil {
		b.WriteString(statusDownStyle.Render(fmt.Sprintf("Ongoing for %s", formatDuration(time.Duration(log.OpenDurationSeconds)*time.Second))))
		b.WriteString("\n")
	}
	if log.ResolvedIncidents > 0 {
		b.WriteString(fmt.Sprintf("Avg %s • Longest %s • Shortest %s\n",
			formatDuration(seconds(log.AverageSeconds)),
			formatDuration(seconds(log.LongestSeconds)),
			formatDuration(seconds(log.ShortestSeconds))))
	}

	windows := make([]string, 0, len(log.Windows))
	for _, w := range log.Windows {
		windows = append(windows, fmt.Sprintf("%s: %d / %s", w.Label, w.Incidents, formatDuration(seconds(w.DowntimeSeconds))))
	}
	if len(windows) > 0 {
		b.WriteString(strings.Join(windows, " • "))
		b.WriteString("\n")
	}
	return b.String()
}

func renderCheck(cr storage.CheckResult) string {
	icon := "✓"
	switch cr.Status {
	case storage.StatusDown:
		icon = "✗"
	case storage.StatusDegraded:
		icon = "!"
	}

	line := fmt.Sprintf("%s %s - ", icon, cr.CreatedAt.Local().Format("15:04:05"))
	if cr.StatusCode > 0 {
		line += fmt.Sprintf("HTTP %d (%dms)", cr.StatusCode, cr.ResponseTime)
	} else {
		line += fmt.Sprintf("no response (%dms)", cr.ResponseTime)
	}
	if cr.TLSValid != nil {
		tls := "TLS ok"
		if !*cr.TLSValid {
			tls = "TLS invalid"
		}
		if cr.TLSDaysRemaining != nil {
			tls += fmt.Sprintf(" %dd", *cr.TLSDaysRemaining)
		}
		line += " • " + tls
	}
	if cr.DNSValid != nil {
		if *cr.DNSValid {
			line += " • DNS ok"
		} else {
			line += " • DNS failed"
		}
	}
	if cr.Error != "" {
		line += " - " + cr.Error
	}
	return line
}

func describePolicy(t *storage.Target) string {
	switch t.Policy() {
	case storage.AlertContainsKeyword:
		return fmt.Sprintf("down when body contains %q", t.AlertKeyword)
	case storage.AlertNotContainsKeyword:
		return fmt.Sprintf("down when body lacks %q", t.AlertKeyword)
	case storage.AlertHTTPStatusOtherThan:
		codes := t.AlertStatusCodes
		if codes == "" {
			codes = "200"
		}
		return fmt.Sprintf("down unless status in %s", codes)
	default:
		return "down on 5xx or no response"
	}
}

func formatStatus(status storage.Status) string {
	label := statusLabel(status)
	switch status {
	case storage.StatusOperational:
		return statusUpStyle.Render(label)
	case storage.StatusDegraded:
		return statusDegradedStyle.Render(label)
	case storage.StatusDown:
		return statusDownStyle.Render(label)
	default:
		return statusUnknownStyle.Render(label)
	}
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func seconds(s int64) time.Duration {
	return time.Duration(s) * time.Second
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return fmt.Sprintf("%.1fd", d.Hours()/24)
}
