package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	"github.com/tinytelemetry/usetrack/internal/model"
	"github.com/tinytelemetry/usetrack/internal/presenter"
)

// Config holds Session settings.
type Config struct {
	UpdateInterval time.Duration
	TickInterval   time.Duration
	Clock          clockwork.Clock

	// Source, when set, is read by the presenter directly. In-process runs
	// pass the collector; remote runs leave it nil and the presenter reads
	// the cached snapshot instead.
	Source model.TaskReader
}

// Session is the state shared by the indicator and summary pages: the
// session API, the last snapshot and the presenter driving the clock.
type Session struct {
	api       model.SessionAPI
	cache     *snapshotSource
	presenter *presenter.Presenter
	elapsedCh chan presenter.Elapsed
	done      chan struct{} // closed by Close to release the elapsed listener

	snap    model.SessionSnapshot
	elapsed presenter.Elapsed

	updateInterval time.Duration
	tickInFlight   bool
	started        bool
	closed         bool

	lastError string

	naming    bool
	nameInput textinput.Model
	keys      KeyMap
	help      help.Model
}

// NewSession creates the shared page state for api.
func NewSession(api model.SessionAPI, cfg Config) *Session {
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = model.DefaultUpdateInterval
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = model.DefaultTickInterval
	}

	s := &Session{
		api:            api,
		cache:          &snapshotSource{},
		elapsedCh:      make(chan presenter.Elapsed, 1),
		done:           make(chan struct{}),
		updateInterval: cfg.UpdateInterval,
		keys:           DefaultKeyMap(),
		help:           help.New(),
	}

	var src model.TaskReader = s.cache
	if cfg.Source != nil {
		src = cfg.Source
	}
	opts := []presenter.Option{
		presenter.WithInterval(cfg.TickInterval),
		presenter.WithPublisher(latestWins(s.elapsedCh)),
	}
	if cfg.Clock != nil {
		opts = append(opts, presenter.WithClock(cfg.Clock))
	}
	s.presenter = presenter.New(src, opts...)

	ti := textinput.New()
	ti.Placeholder = "task name"
	ti.CharLimit = 80
	ti.Width = 32
	s.nameInput = ti

	return s
}

// Presenter returns the elapsed-time presenter owned by the session.
func (s *Session) Presenter() *presenter.Presenter {
	return s.presenter
}

// Close stops the presenter. It is safe to call more than once.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.presenter.Close()
	close(s.done)
}

// Init starts the refresh loop and the elapsed listener. Only the first
// call does anything so switching pages does not fork a second loop.
func (s *Session) Init() tea.Cmd {
	if s.started {
		return nil
	}
	s.started = true
	s.tickInFlight = true
	return tea.Batch(
		s.fetchSnapshotCmd(),
		s.scheduleTick(),
		waitForElapsed(s.elapsedCh, s.done),
	)
}

// update applies msg to the shared state.
func (s *Session) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.help.Width = msg.Width

	case tea.KeyMsg:
		return s.handleKey(msg)

	case TickMsg:
		if s.closed {
			return nil
		}
		if s.tickInFlight {
			return s.scheduleTick()
		}
		s.tickInFlight = true
		return tea.Batch(s.fetchSnapshotCmd(), s.scheduleTick())

	case snapshotLoadedMsg:
		s.tickInFlight = false
		if msg.err != nil {
			s.lastError = msg.err.Error()
			return nil
		}
		s.snap = msg.snap
		s.cache.set(msg.snap)
		s.presenter.Sync()

	case elapsedMsg:
		s.elapsed = presenter.Elapsed(msg)
		if s.closed {
			return nil
		}
		return waitForElapsed(s.elapsedCh, s.done)

	case actionDoneMsg:
		if msg.err != nil {
			s.lastError = fmt.Sprintf("%s: %v", msg.action, msg.err)
		} else {
			s.lastError = ""
		}
		return s.refreshNow()
	}
	return nil
}

func (s *Session) handleKey(msg tea.KeyMsg) tea.Cmd {
	if s.naming {
		return s.handleNameInput(msg)
	}

	switch {
	case key.Matches(msg, s.keys.Quit), key.Matches(msg, s.keys.ForceQuit):
		s.Close()
		return tea.Quit

	case key.Matches(msg, s.keys.ToggleTestMode):
		enable := !s.snap.TestMode
		label := "disable test mode"
		if enable {
			label = "enable test mode"
		}
		return s.actionCmd(label, func() error { return s.api.SetTestMode(enable) })

	case key.Matches(msg, s.keys.StartTask):
		s.naming = true
		s.nameInput.SetValue("")
		return s.nameInput.Focus()

	case key.Matches(msg, s.keys.EndTask):
		return s.actionCmd("end task", func() error {
			_, _, err := s.api.EndTask()
			return err
		})

	case key.Matches(msg, s.keys.Click):
		return s.recordCmd(model.EventClick)
	case key.Matches(msg, s.keys.Error):
		return s.recordCmd(model.EventError)
	case key.Matches(msg, s.keys.Help):
		return s.recordCmd(model.EventHelp)
	}
	return nil
}

func (s *Session) handleNameInput(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, s.keys.ForceQuit):
		s.Close()
		return tea.Quit

	case key.Matches(msg, s.keys.Cancel):
		s.naming = false
		s.nameInput.Blur()
		return nil

	case key.Matches(msg, s.keys.Confirm):
		name := strings.TrimSpace(s.nameInput.Value())
		s.naming = false
		s.nameInput.Blur()
		if name == "" {
			return nil
		}
		return s.actionCmd("start task", func() error {
			_, err := s.api.StartTask(name)
			return err
		})
	}

	var cmd tea.Cmd
	s.nameInput, cmd = s.nameInput.Update(msg)
	return cmd
}

func (s *Session) recordCmd(kind model.EventKind) tea.Cmd {
	return s.actionCmd("record "+string(kind), func() error { return s.api.Record(kind) })
}

func (s *Session) actionCmd(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn()}
	}
}

func (s *Session) refreshNow() tea.Cmd {
	if s.tickInFlight {
		return nil
	}
	s.tickInFlight = true
	return s.fetchSnapshotCmd()
}

func (s *Session) fetchSnapshotCmd() tea.Cmd {
	api := s.api
	return func() tea.Msg {
		snap, err := api.Snapshot()
		return snapshotLoadedMsg{snap: snap, err: err}
	}
}

func (s *Session) scheduleTick() tea.Cmd {
	return tea.Tick(s.updateInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func waitForElapsed(ch <-chan presenter.Elapsed, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-ch:
			return elapsedMsg(e)
		case <-done:
			return nil
		}
	}
}

// latestWins returns a publisher that never blocks the presenter: when the
// UI has not consumed the previous value it is replaced by the new one.
func latestWins(ch chan presenter.Elapsed) presenter.Publisher {
	return func(e presenter.Elapsed) {
		for {
			select {
			case ch <- e:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	}
}

func (s *Session) helpView() string {
	if s.naming {
		return s.help.View(inputKeys{Confirm: s.keys.Confirm, Cancel: s.keys.Cancel})
	}
	return s.help.View(s.keys)
}

func (s *Session) errorLine() string {
	if s.lastError == "" {
		return ""
	}
	return errorStyle.Render("! " + s.lastError)
}
