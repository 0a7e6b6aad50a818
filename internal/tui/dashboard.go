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

var (
	metricLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))

	metricValueStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("255"))

	uptimeGoodStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	uptimeBadStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("62")).
			Padding(0, 1).
			MarginBottom(1)

	sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
)

const sparkHistory = 60

// DashboardModel is a read-only overview of every target.
type DashboardModel struct {
	db            Store
	targets       []storage.Target
	checkResults  map[uint][]storage.CheckResult
	downtime      map[uint]downtime.Log
	width         int
	height        int
	selectedIndex int
	lastUpdate    time.Time
}

type dashTickMsg time.Time

func NewDashboard(db Store) DashboardModel {
	m := DashboardModel{
		db:           db,
		checkResults: make(map[uint][]storage.CheckResult),
		downtime:     make(map[uint]downtime.Log),
	}
	m.loadData()
	return m
}

func (m *DashboardModel) loadData() {
	targets, err := m.db.ListTargets()
	if err != nil {
		return
	}
	m.targets = targets

	now := time.Now()
	for _, t := range targets {
		if results, err := m.db.GetRecentCheckResults(t.ID, sparkHistory); err == nil {
			m.checkResults[t.ID] = results
		}
		if incidents, err := m.db.ListIncidents(t.ID, config.DefaultIncidentLookback); err == nil {
			m.downtime[t.ID] = downtime.Aggregate(incidents, t.CreatedAt, now)
		}
	}
	m.lastUpdate = now
}

func (m DashboardModel) Init() tea.Cmd {
	return dashTickCmd()
}

func dashTickCmd() tea.Cmd {
	return tea.Tick(time.Second*2, func(t time.Time) tea.Msg {
		return dashTickMsg(t)
	})
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "j", "down":
			if m.selectedIndex < len(m.targets)-1 {
				m.selectedIndex++
			}
		case "k", "up":
			if m.selectedIndex > 0 {
				m.selectedIndex--
			}
		case "r":
			m.loadData()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case dashTickMsg:
		m.loadData()
		return m, dashTickCmd()
	}

	return m, nil
}

func (m DashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	header := headerStyle.Width(m.width - 2).Render(
		fmt.Sprintf("📊 upwatch Dashboard • %d targets • Updated: %s",
			len(m.targets),
			m.lastUpdate.Format("15:04:05")))
	b.WriteString(header)
	b.WriteString("\n\n")

	if len(m.targets) == 0 {
		b.WriteString(metricLabelStyle.Render(
			"No targets configured. Use 'upwatch add <url>' to add one."))
		return b.String()
	}

	b.WriteString(renderSummaryCards(countStatus(m.targets)))
	b.WriteString("\n\n")

	for i, t := range m.targets {
		b.WriteString(m.renderTargetCard(t, i == m.selectedIndex))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("j/k: navigate • r: refresh • q: quit"))

	return b.String()
}

type statusCounts struct {
	operational, degraded, down, unknown int
}

func countStatus(targets []storage.Target) statusCounts {
	var c statusCounts
	for _, t := range targets {
		switch t.CurrentStatus {
		case storage.StatusOperational:
			c.operational++
		case storage.StatusDegraded:
			c.degraded++
		case storage.StatusDown:
			c.down++
		default:
			c.unknown++
		}
	}
	return c
}

func summaryCard(color, value, label string, style lipgloss.Style) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(color)).
		Padding(0, 2).
		Render(fmt.Sprintf("%s\n%s", style.Render(value), metricLabelStyle.Render(label)))
}

func renderSummaryCards(c statusCounts) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		summaryCard("42", fmt.Sprintf("✓ %d UP", c.operational), "Healthy", uptimeGoodStyle),
		"  ",
		summaryCard("214", fmt.Sprintf("! %d DEGRADED", c.degraded), "Warnings", statusDegradedStyle),
		"  ",
		summaryCard("196", fmt.Sprintf("✗ %d DOWN", c.down), "Issues", uptimeBadStyle),
		"  ",
		summaryCard("244", fmt.Sprintf("? %d UNKNOWN", c.unknown), "Pending", metricValueStyle),
	)
}

// checkStats summarizes response times over checks that were not down.
type checkStats struct {
	avg, min, max int64
	answered      int
	total         int
}

func (s checkStats) ratio() float64 {
	if s.total == 0 {
		return 0
	}
	return float64(s.answered) / float64(s.total) * 100
}

func summarizeChecks(results []storage.CheckResult) checkStats {
	s := checkStats{total: len(results)}
	for _, r := range results {
		if !r.Success() {
			continue
		}
		if s.answered == 0 || r.ResponseTime < s.min {
			s.min = r.ResponseTime
		}
		s.max = max(s.max, r.ResponseTime)
		s.avg += r.ResponseTime
		s.answered++
	}
	if s.answered > 0 {
		s.avg /= int64(s.answered)
	}
	return s
}

func (m DashboardModel) renderTargetCard(t storage.Target, selected bool) string {
	results := m.checkResults[t.ID]
	stats := summarizeChecks(results)

	var content strings.Builder

	statusStyle := statusUnknownStyle
	borderColor := lipgloss.Color("240")
	switch t.CurrentStatus {
	case storage.StatusOperational:
		statusStyle, borderColor = statusUpStyle, lipgloss.Color("42")
	case storage.StatusDegraded:
		statusStyle, borderColor = statusDegradedStyle, lipgloss.Color("214")
	case storage.StatusDown:
		statusStyle, borderColor = statusDownStyle, lipgloss.Color("196")
	}

	content.WriteString(fmt.Sprintf("%s %s  %s",
		statusStyle.Render("●"),
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Render(t.Name),
		metricLabelStyle.Render(truncateURL(t.URL, 40))))
	content.WriteString("\n\n")

	content.WriteString(metricLabelStyle.Render(fmt.Sprintf("Response Time (last %d checks):", sparkHistory)))
	content.WriteString("\n")
	content.WriteString(renderSparkline(results, 50))
	content.WriteString("\n\n")

	uptime := 100.0
	if log, ok := m.downtime[t.ID]; ok {
		uptime = log.UptimePercent
	}

	content.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderMetric("Uptime", fmt.Sprintf("%.3f%%", uptime), uptime >= 99),
		"   ",
		renderMetric("Answered", fmt.Sprintf("%.1f%%", stats.ratio()), stats.ratio() >= 99),
		"   ",
		renderMetric("Avg", fmt.Sprintf("%dms", stats.avg), true),
		"   ",
		renderMetric("Min", fmt.Sprintf("%dms", stats.min), true),
		"   ",
		renderMetric("Max", fmt.Sprintf("%dms", stats.max), stats.max < 1000),
		"   ",
		renderMetric("Checks", fmt.Sprintf("%d", stats.total), true),
	))

	if t.LastCheckAt != nil {
		content.WriteString("\n\n")
		content.WriteString(metricLabelStyle.Render(fmt.Sprintf("Last check: %s ago", formatTimeAgo(*t.LastCheckAt))))
	}

	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(1, 2).
		Width(m.width - 4)

	if selected {
		card = card.
			BorderForeground(lipgloss.Color("170")).
			BorderStyle(lipgloss.DoubleBorder())
	}

	return card.Render(content.String())
}

// renderSparkline draws results oldest to newest. Results arrive newest first.
func renderSparkline(results []storage.CheckResult, width int) string {
	if len(results) == 0 {
		return metricLabelStyle.Render("No data yet")
	}

	var spark strings.Builder
	for _, r := range sparkSeries(results, width) {
		switch {
		case r.down:
			spark.WriteString(statusDownStyle.Render("▄"))
		case r.degraded:
			spark.WriteString(statusDegradedStyle.Render(string(r.block)))
		case r.ms < 200:
			spark.WriteString(statusUpStyle.Render(string(r.block)))
		case r.ms < 500:
			spark.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Render(string(r.block)))
		default:
			spark.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Render(string(r.block)))
		}
	}

	return spark.String() + metricLabelStyle.Render(fmt.Sprintf(" (0-%dms)", maxResponse(results)))
}

type sparkPoint struct {
	block    rune
	ms       int64
	down     bool
	degraded bool
}

func maxResponse(results []storage.CheckResult) int64 {
	var m int64 = 1
	for _, r := range results {
		m = max(m, r.ResponseTime)
	}
	return m
}

// sparkSeries keeps the newest width results and orders them oldest first.
func sparkSeries(results []storage.CheckResult, width int) []sparkPoint {
	n := min(len(results), width)
	top := maxResponse(results)

	points := make([]sparkPoint, 0, n)
	for i := n - 1; i >= 0; i-- {
		r := results[i]
		idx := int(float64(r.ResponseTime) / float64(top) * float64(len(sparkBlocks)-1))
		idx = max(0, min(idx, len(sparkBlocks)-1))
		points = append(points, sparkPoint{
			block:    sparkBlocks[idx],
			ms:       r.ResponseTime,
			down:     r.Status == storage.StatusDown,
			degraded: r.Status == storage.StatusDegraded,
		})
	}
	return points
}

func renderMetric(label, value string, good bool) string {
	valueStyle := metricValueStyle
	if !good {
		valueStyle = uptimeBadStyle
	}
	return fmt.Sprintf("%s\n%s", valueStyle.Render(value), metricLabelStyle.Render(label))
}

func truncateURL(url string, maxLen int) string {
	if len(url) <= maxLen {
		return url
	}
	return url[:maxLen-3] + "..."
}

func formatTimeAgo(t time.Time) string {
	return formatDuration(time.Since(t))
}
