package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/usetrack/internal/model"
	"github.com/tinytelemetry/usetrack/internal/presenter"
)

// SummaryPage shows session totals, the task list and a duration chart.
type SummaryPage struct {
	s *Session
}

// NewSummaryPage creates the summary page over s.
func NewSummaryPage(s *Session) *SummaryPage {
	return &SummaryPage{s: s}
}

func (p *SummaryPage) ID() string    { return PageSummary }
func (p *SummaryPage) Init() tea.Cmd { return p.s.Init() }

func (p *SummaryPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	if km, ok := msg.(tea.KeyMsg); ok && !p.s.naming && key.Matches(km, p.s.keys.NextPage) {
		return nil, &PageNav{PageID: PageIndicator}
	}
	return p.s.update(msg), nil
}

func (p *SummaryPage) View(width, height int) string {
	s := p.s
	var b strings.Builder

	b.WriteString(titleStyle.Render("Session summary"))
	b.WriteString("\n")
	b.WriteString(renderTotals(s.snap.Metrics))
	b.WriteString("\n\n")

	tasks := summaryTasks(s.snap)
	if len(tasks) == 0 {
		b.WriteString(dimStyle.Render("no tasks recorded yet"))
		b.WriteString("\n")
	} else {
		b.WriteString(renderTaskTable(tasks, s.snap.TakenAt))
		b.WriteString("\n")
		if chart := renderDurationChart(tasks, s.snap.TakenAt, width-4, chartHeight(height)); chart != "" {
			b.WriteString(chart)
			b.WriteString("\n")
		}
	}

	if s.naming {
		b.WriteString("\n")
		b.WriteString(s.nameInput.View())
		b.WriteString("\n")
	}
	if line := s.errorLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(s.helpView())

	return lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, b.String())
}

func renderTotals(m model.AggregateMetrics) string {
	return fmt.Sprintf("tasks %d   time %s   clicks %d   errors %d   help %.1f%%",
		m.TaskCount,
		presenter.FormatClock(m.TotalSeconds()),
		m.TotalClicks,
		m.TotalErrors,
		m.HelpUsagePercent,
	)
}

// summaryTasks lists completed tasks followed by the active one, if any.
func summaryTasks(snap model.SessionSnapshot) []model.TaskMetric {
	tasks := make([]model.TaskMetric, 0, len(snap.CompletedTasks)+1)
	tasks = append(tasks, snap.CompletedTasks...)
	if snap.CurrentTask != nil {
		tasks = append(tasks, *snap.CurrentTask)
	}
	return tasks
}

func renderTaskTable(tasks []model.TaskMetric, now time.Time) string {
	nameWidth := 4
	for _, t := range tasks {
		if n := lipgloss.Width(t.Name); n > nameWidth {
			nameWidth = min(n, 32)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-3s %-*s %6s %6s %6s %4s\n", "#", nameWidth, "task", "time", "clicks", "errors", "help")
	for i, t := range tasks {
		name := truncate(t.Name, nameWidth)
		help := ""
		if t.HelpUsed {
			help = "yes"
		}
		row := fmt.Sprintf("%-3d %-*s %6s %6d %6d %4s",
			i+1, nameWidth, name,
			presenter.FormatClock(int64(t.Duration(now)/time.Second)),
			t.Clicks, t.Errors, help)
		if t.Active() {
			row = taskNameStyle.Render(row + "  ●")
		}
		b.WriteString(row)
		b.WriteString("\n")
	}
	return b.String()
}

// renderDurationChart draws one bar per task, height proportional to its
// duration. Tasks where help was used are drawn in the help color.
func renderDurationChart(tasks []model.TaskMetric, now time.Time, width, height int) string {
	if width < 4 || height < 3 || len(tasks) == 0 {
		return ""
	}

	const barWidth, barGap = 2, 1
	maxBars := (width + barGap) / (barWidth + barGap)
	if maxBars < 1 {
		return ""
	}
	if len(tasks) > maxBars {
		tasks = tasks[len(tasks)-maxBars:]
	}

	bc := barchart.New(width, height,
		barchart.WithBarGap(barGap),
		barchart.WithBarWidth(barWidth),
		barchart.WithNoAxis(),
	)
	for _, t := range tasks {
		style := barStyle
		if t.HelpUsed {
			style = barHelpStyle
		}
		bc.Push(barchart.BarData{
			Label: "",
			Values: []barchart.BarValue{
				{Name: t.Name, Value: t.Duration(now).Seconds(), Style: style},
			},
		})
	}
	bc.Draw()

	legend := barStyle.Render("■") + dimStyle.Render(" duration  ") +
		barHelpStyle.Render("■") + dimStyle.Render(" help used")
	return bc.View() + "\n" + legend
}

func chartHeight(termHeight int) int {
	h := termHeight / 3
	if h < 4 {
		return 4
	}
	if h > 12 {
		return 12
	}
	return h
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
