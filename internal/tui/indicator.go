package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/usetrack/internal/presenter"
)

const (
	PageIndicator = "indicator"
	PageSummary   = "summary"
)

// IndicatorPage is the floating test-mode indicator: badge, current task
// and its elapsed clock.
type IndicatorPage struct {
	s *Session
}

// NewIndicatorPage creates the indicator page over s.
func NewIndicatorPage(s *Session) *IndicatorPage {
	return &IndicatorPage{s: s}
}

func (p *IndicatorPage) ID() string    { return PageIndicator }
func (p *IndicatorPage) Init() tea.Cmd { return p.s.Init() }

func (p *IndicatorPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	if km, ok := msg.(tea.KeyMsg); ok && !p.s.naming && key.Matches(km, p.s.keys.NextPage) {
		return nil, &PageNav{PageID: PageSummary}
	}
	return p.s.update(msg), nil
}

func (p *IndicatorPage) View(width, height int) string {
	s := p.s
	var b strings.Builder

	b.WriteString(renderIndicator(s))
	b.WriteString("\n\n")

	if s.naming {
		b.WriteString(s.nameInput.View())
		b.WriteString("\n\n")
	}
	if line := s.errorLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(s.helpView())

	return lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, b.String())
}

// renderIndicator renders the badge line and counters. Outside test mode it
// collapses to a single dimmed badge.
func renderIndicator(s *Session) string {
	if !s.snap.TestMode {
		return badgeOffStyle.Render("test mode off") + "  " + dimStyle.Render("press t to begin a session")
	}

	badge := badgeStyle.Render("● TEST MODE")
	if s.elapsed.State != presenter.Ticking || s.snap.CurrentTask == nil {
		line := lipgloss.JoinHorizontal(lipgloss.Center,
			badge, "  ",
			dimStyle.Render("no active task"), "  ",
			clockStyle.Render(presenter.FormatClock(0)),
		)
		return panelStyle.Render(line)
	}

	task := s.snap.CurrentTask
	name := s.elapsed.TaskName
	if name == "" {
		name = task.Name
	}
	top := lipgloss.JoinHorizontal(lipgloss.Center,
		badge, "  ",
		taskNameStyle.Render(name), "  ",
		clockStyle.Render(s.elapsed.Clock()),
	)

	help := "no"
	if task.HelpUsed {
		help = "yes"
	}
	counters := dimStyle.Render(fmt.Sprintf("clicks %d   errors %d   help %s", task.Clicks, task.Errors, help))

	return panelStyle.Render(top + "\n" + counters)
}
